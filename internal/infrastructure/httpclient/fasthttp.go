package httpclient

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxLoggedBody = 512

// do executes req bounded by the earlier of the context deadline and timeout.
// fasthttp has no context support, so cancellation is only observed before the call starts.
// A complete response is returned as a success even if ctx ended while it was in flight:
// the remote side has acted on the request by then.
func do(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return client.DoDeadline(req, resp, deadline)
}

func isTimeout(err error) bool {
	return errors.Is(err, fasthttp.ErrTimeout) ||
		errors.Is(err, fasthttp.ErrDialTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

func truncateBody(body []byte) []byte {
	if len(body) > maxLoggedBody {
		return body[:maxLoggedBody]
	}
	return body
}

func statusOK(code int) bool {
	return code >= fasthttp.StatusOK && code < fasthttp.StatusMultipleChoices
}
