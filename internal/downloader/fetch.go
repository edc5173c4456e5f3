package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

const (
	chunkSize  = 32 << 10
	partSuffix = ".part"
	maxMessage = 100
)

// Failure classes used as the prefix of a failure-log error.
const (
	ClassTimeout    = "timeout"
	ClassCanceled   = "canceled"
	ClassHTTPStatus = "http_status"
	ClassTransport  = "transport"
	ClassWrite      = "write"
	ClassInvalidPDF = "invalid_pdf"
)

// FetchError is a classified per-row download failure.
type FetchError struct {
	Class   string
	Message string
}

func (e *FetchError) Error() string { return e.Class + ": " + e.Message }

func newFetchError(class string, err error) *FetchError {
	return &FetchError{Class: class, Message: truncate(err.Error(), maxMessage)}
}

// classifyError names the failure class of a transport or body read error.
// ctx is the per-download context.
func classifyError(ctx context.Context, err error) *FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return newFetchError(ClassTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return newFetchError(ClassCanceled, err)
	default:
		return newFetchError(ClassTransport, err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// fetch streams src into dest. The body goes to dest+".part" first and is
// renamed into place only once complete, synced and, for PDFs, verified.
// The part file never outlives a failed call.
func (d *Downloader) fetch(ctx context.Context, src, dest string, kind model.FileKind) (int64, *FetchError) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, newFetchError(ClassTransport, err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return 0, classifyError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, &FetchError{Class: ClassHTTPStatus, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	part := dest + partSuffix
	n, ferr := persist(ctx, part, resp.Body)
	if ferr != nil {
		return 0, ferr
	}
	if kind == model.KindPDF && d.cfg.VerifyPDF != nil {
		if err := d.cfg.VerifyPDF(part); err != nil {
			os.Remove(part)
			return 0, newFetchError(ClassInvalidPDF, err)
		}
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return 0, newFetchError(ClassWrite, err)
	}
	return n, nil
}

// persist copies body into part in fixed-size chunks and syncs it.
func persist(ctx context.Context, part string, body io.Reader) (int64, *FetchError) {
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, newFetchError(ClassWrite, err)
	}
	fail := func(e *FetchError) (int64, *FetchError) {
		f.Close()
		os.Remove(part)
		return 0, e
	}

	buf := make([]byte, chunkSize)
	var written int64
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			nw, werr := f.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return fail(newFetchError(ClassWrite, werr))
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fail(classifyError(ctx, rerr))
		}
	}
	if err := f.Sync(); err != nil {
		return fail(newFetchError(ClassWrite, err))
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return 0, newFetchError(ClassWrite, err)
	}
	return written, nil
}
