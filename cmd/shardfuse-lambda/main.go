// Lambda function-URL front end for the shard fusion views.
//
// Routes (GET):
//
//	/items/{id}?limit=N
//	/fuse/{id}?type=special&limit=N
//	/contributions/{id}?direction=from&limit=N
//	/groups/{kind}
//	/requirements?search=rare&limit=N
//	/stats
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	gosync "sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/rsned/shardfuse-server/internal/shardfuse/config"
	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type app struct {
	eng    *engine.Engine
	logger *slog.Logger
}

func (a *app) handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	if m := event.RequestContext.HTTP.Method; m != "" && m != "GET" {
		return errResp(405, "method not allowed")
	}

	parts := strings.Split(strings.Trim(event.RawPath, "/"), "/")
	q := event.QueryStringParameters
	limit, err := queryInt(q, "limit")
	if err != nil {
		return errResp(400, err.Error())
	}

	var out any
	switch {
	case len(parts) == 2 && parts[0] == "items":
		out, err = a.eng.ItemView(ctx, shardfuse.ItemViewRequest{ItemID: parts[1], Limit: limit})
	case len(parts) == 2 && parts[0] == "fuse":
		out, err = a.eng.FuseOptions(ctx, shardfuse.FuseOptionsRequest{TargetID: parts[1], FusionType: q["type"], Limit: limit})
	case len(parts) == 2 && parts[0] == "contributions":
		out, err = a.eng.Contributions(ctx, shardfuse.ContributionsRequest{ItemID: parts[1], Direction: q["direction"], Limit: limit})
	case len(parts) == 2 && parts[0] == "groups":
		out, err = a.eng.Groups(ctx, shardfuse.GroupsRequest{Kind: parts[1]})
	case len(parts) == 1 && parts[0] == "requirements":
		out, err = a.eng.Requirements(ctx, shardfuse.RequirementsRequest{Search: q["search"], Limit: limit})
	case len(parts) == 1 && parts[0] == "stats":
		out, err = a.eng.Stats(ctx)
	default:
		return errResp(404, fmt.Sprintf("no route for %q", event.RawPath))
	}
	if err != nil {
		return a.queryError(event.RawPath, err)
	}

	body, err := json.Marshal(out)
	if err != nil {
		return errResp(500, "encoding response")
	}
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(body)}, nil
}

func (a *app) queryError(path string, err error) (events.LambdaFunctionURLResponse, error) {
	var se *shardfuse.Error
	switch {
	case errors.Is(err, engine.ErrNoSnapshot):
		a.logger.Error("query before snapshot", "path", path)
		return errResp(503, err.Error())
	case errors.Is(err, shardfuse.ErrUnknownItemReference):
		return errResp(404, err.Error())
	case errors.As(err, &se):
		return errResp(422, err.Error())
	}
	return errResp(400, err.Error())
}

func queryInt(q map[string]string, key string) (int, error) {
	v, ok := q[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

// lazyApp computes the snapshot on the first successful invocation and
// reuses it for the lifetime of the execution environment. A failed
// initialization is retried by the next request.
type lazyApp struct {
	mu   gosync.Mutex
	app  *app
	init func(ctx context.Context) (*app, error)
}

func (l *lazyApp) get(ctx context.Context) (*app, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.app != nil {
		return l.app, nil
	}
	a, err := l.init(ctx)
	if err != nil {
		return nil, err
	}
	l.app = a
	return a, nil
}

func (l *lazyApp) handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	a, err := l.get(ctx)
	if err != nil {
		return errResp(503, err.Error())
	}
	return a.handler(ctx, event)
}

// newApp computes a snapshot from the files named by the SHARDFUSE_*
// environment variables.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	in, err := sync.ReadFiles(sync.Files{
		Catalog:   cfg.Data.CatalogFile,
		Prices:    cfg.Data.PricesFile,
		CostToMax: cfg.Data.CostToMaxFile,
	})
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Options{ChameleonID: cfg.Engine.ChameleonID, Workers: cfg.Engine.Workers}, logger)
	if _, err := eng.Recompute(ctx, in); err != nil {
		return nil, fmt.Errorf("computing snapshot: %w", err)
	}
	return &app{eng: eng, logger: logger}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	l := &lazyApp{init: func(ctx context.Context) (*app, error) { return newApp(ctx, logger) }}
	lambda.Start(l.handler)
}
