package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"slurmstat/application"
	"slurmstat/common"
	"slurmstat/report"
	"slurmstat/usage"
)

type UsageInput struct {
	From  string `query:"from" doc:"Start date: YYYY-MM-DD, Nd, or Nw [default: first day of last month]"`
	To    string `query:"to" doc:"End date: YYYY-MM-DD, Nd, or Nw [default: last day of last month]"`
	User  string `query:"user" doc:"Restrict the report to this user"`
	Merge string `query:"merge" enum:"arrival,none,union" default:"arrival" doc:"Interval merge policy"`
	Kind  string `query:"kind" enum:"usage,cputime" default:"usage" doc:"Report columns"`
}

type UsageOutput struct {
	Body *report.Report
}

// The API is registered on mux, which must also carry any other routes.
func registerAPI(mux *http.ServeMux, version string, runner *application.Runner, now func() time.Time) huma.API {
	api := humago.New(mux, huma.DefaultConfig("slurmstat", version))
	huma.Register(api, huma.Operation{
		OperationID: "get-usage",
		Method:      http.MethodGet,
		Path:        "/usage",
		Summary:     "Per-partition, per-user usage for a window",
	}, func(ctx context.Context, input *UsageInput) (*UsageOutput, error) {
		req, err := buildRequest(input, now())
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		rep, err := runner.Run(ctx, req)
		if err != nil {
			if errors.Is(err, application.ErrNoCpuTime) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			common.Log.Errorf("Usage query failed: %v", err)
			return nil, huma.Error500InternalServerError("Query failed", err)
		}
		return &UsageOutput{Body: rep}, nil
	})
	return api
}

func buildRequest(input *UsageInput, now time.Time) (*application.Request, error) {
	from, to, err := common.ResolveWindow(now, input.From, input.To)
	if err != nil {
		return nil, err
	}
	req := &application.Request{From: from, To: to, User: input.User, Kind: report.UsageKind}
	if input.Merge != "" {
		if req.Merge, err = usage.ParseMergePolicy(input.Merge); err != nil {
			return nil, err
		}
	}
	switch input.Kind {
	case "", string(report.UsageKind):
	case string(report.CpuTimeKind):
		req.Kind = report.CpuTimeKind
	default:
		return nil, errors.New("Unknown report kind " + input.Kind)
	}
	return req, nil
}
