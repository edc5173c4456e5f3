package classify

import (
	"context"
	"net/http"
	"time"
)

// probeState is a step of the probe protocol.
//
//	stateHead  --settled-->            stateDone
//	stateHead  --error|>=400|no type--> stateRange
//	stateRange --any-->                stateDone
//
// The head probe settles when it returns a status below 400 together with a
// declared content type. The range probe replaces the head observation when
// it succeeds at the transport level. A probe is reported as failed only when
// neither step produced an observation.
type probeState int

const (
	stateHead probeState = iota
	stateRange
	stateDone
)

type observation struct {
	finalURL    string
	status      int
	contentType string
}

func (o observation) settled() bool {
	return o.status < http.StatusBadRequest && o.contentType != ""
}

func (c *Classifier) probe(ctx context.Context, rawURL string) (observation, bool) {
	var (
		result observation
		have   bool
	)
	for state := stateHead; state != stateDone; {
		switch state {
		case stateHead:
			state = stateRange
			obs, err := c.request(ctx, http.MethodHead, rawURL, nil, headTimeout)
			if err != nil {
				continue
			}
			result, have = obs, true
			if obs.settled() {
				state = stateDone
			}
		case stateRange:
			state = stateDone
			obs, err := c.request(ctx, http.MethodGet, rawURL, map[string]string{"Range": "bytes=0-0"}, rangeTimeout)
			if err != nil {
				continue
			}
			result, have = obs, true
		}
	}
	return result, have
}

func (c *Classifier) request(ctx context.Context, method, rawURL string, headers map[string]string, timeout time.Duration) (observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return observation{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return observation{}, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return observation{}, err
	}
	// Only headers matter; the body is at most one byte for the range probe.
	resp.Body.Close()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return observation{
		finalURL:    finalURL,
		status:      resp.StatusCode,
		contentType: mediaType(resp.Header.Get("Content-Type")),
	}, nil
}
