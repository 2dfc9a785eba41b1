package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/leapstack-labs/colgraph/internal/query"
	"github.com/leapstack-labs/colgraph/pkg/core"
)

// envelope is the wire shape every API response uses.
type envelope struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message,omitempty"`
	Data      []core.LineageRecord `json:"data"`
	Total     int                  `json:"total"`
	PageNo    int                  `json:"pageNo"`
	PageSize  int                  `json:"pageSize"`
	Truncated bool                 `json:"truncated"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleTable answers GET /api/lineage/table.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	req, err := tableRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.run(w, r, req)
}

// columnsPayload is the POST body for the column-batch endpoint.
type columnsPayload struct {
	App      string   `json:"app"`
	Database string   `json:"database"`
	Table    string   `json:"table"`
	Columns  []string `json:"columns"`

	Flag           int  `json:"flag"`
	Depth          int  `json:"depth"`
	Transitive     bool `json:"transitive"`
	IncludeNonReal bool `json:"includeNonReal"`
	PageNo         int  `json:"pageNo"`
	PageSize       int  `json:"pageSize"`
}

// handleColumns answers POST /api/lineage/columns.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	var body columnsPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, core.Invalidf("invalid request body: %v", err))
		return
	}

	keys := make([]core.NodeKey, 0, len(body.Columns))
	for _, c := range body.Columns {
		keys = append(keys, core.NodeKey{
			App:      body.App,
			Database: body.Database,
			Table:    body.Table,
			Column:   c,
		})
	}
	req := query.Request{
		Kind:                  query.ColumnBatchQuery,
		App:                   body.App,
		Database:              body.Database,
		Table:                 body.Table,
		Columns:               keys,
		Direction:             directionFromFlag(body.Flag),
		MaxDepth:              body.Depth,
		Transitive:            body.Transitive,
		IncludeNonRealAnchors: body.IncludeNonReal,
		PageNo:                body.PageNo,
		PageSize:              body.PageSize,
	}
	s.run(w, r, req)
}

// handleJob answers GET /api/lineage/job.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := query.Request{
		Kind:                  query.JobQuery,
		ETLSystem:             q.Get("system"),
		AppName:               q.Get("app"),
		IncludeNonRealAnchors: q.Get("includeNonReal") == "true",
	}
	if jobs := q.Get("jobs"); jobs != "" {
		req.ETLJobs = strings.Split(jobs, ",")
	}
	var err error
	if req.PageNo, req.PageSize, err = paging(q.Get("pageNo"), q.Get("pageSize")); err != nil {
		s.writeError(w, err)
		return
	}
	s.run(w, r, req)
}

// handleExportTable streams a table query as a CSV attachment.
func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	req, err := tableRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Exports are unpaged; page size zero would select the default, so
	// run page by page until exhausted.
	req.PageSize = query.DefaultPageSize

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="lineage_%s_%s.csv"`, req.Database, req.Table))

	cw := csv.NewWriter(w)
	if err := cw.Write(core.RecordFields); err != nil {
		return
	}
	for page := 1; ; page++ {
		req.PageNo = page
		resp, err := s.orchestrator.Run(r.Context(), req)
		if err != nil {
			s.logger.Error("export query failed", "error", err)
			return
		}
		for _, rec := range resp.Records {
			if err := cw.Write(rec.Values()); err != nil {
				return
			}
		}
		if len(resp.Records) < req.PageSize {
			break
		}
	}
	cw.Flush()
}

// run executes the query and writes the JSON envelope.
func (s *Server) run(w http.ResponseWriter, r *http.Request, req query.Request) {
	resp, err := s.orchestrator.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      resp.Records,
		Total:     resp.TotalReturnedThisPage,
		PageNo:    resp.PageNo,
		PageSize:  resp.PageSize,
		Truncated: resp.Truncated,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsInvalidRequest(err):
		status = http.StatusBadRequest
	case core.IsAdapterFailure(err):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, envelope{
		Success: false,
		Message: err.Error(),
		Data:    []core.LineageRecord{},
	})
}

// tableRequest parses the shared table query parameters.
func tableRequest(r *http.Request) (query.Request, error) {
	q := r.URL.Query()
	req := query.Request{
		Kind:                  query.TableQuery,
		App:                   q.Get("app"),
		Database:              q.Get("db"),
		Table:                 q.Get("table"),
		Direction:             core.BothDirections,
		Transitive:            q.Get("transitive") == "true",
		IncludeNonRealAnchors: q.Get("includeNonReal") == "true",
	}
	if flag := q.Get("flag"); flag != "" {
		n, err := strconv.Atoi(flag)
		if err != nil {
			return req, core.Invalidf("invalid flag %q", flag)
		}
		req.Direction = directionFromFlag(n)
	}
	if depth := q.Get("depth"); depth != "" {
		n, err := strconv.Atoi(depth)
		if err != nil {
			return req, core.Invalidf("invalid depth %q", depth)
		}
		req.MaxDepth = n
	}
	var err error
	req.PageNo, req.PageSize, err = paging(q.Get("pageNo"), q.Get("pageSize"))
	return req, err
}

func paging(pageNo, pageSize string) (int, int, error) {
	var no, size int
	if pageNo != "" {
		n, err := strconv.Atoi(pageNo)
		if err != nil {
			return 0, 0, core.Invalidf("invalid pageNo %q", pageNo)
		}
		no = n
	}
	if pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			return 0, 0, core.Invalidf("invalid pageSize %q", pageSize)
		}
		size = n
	}
	return no, size, nil
}

// directionFromFlag keeps the analyzer UI's flag convention: 1 is
// upstream, 2 is downstream, anything else both directions.
func directionFromFlag(flag int) core.Direction {
	switch flag {
	case 1:
		return core.Upstream
	case 2:
		return core.Downstream
	default:
		return core.BothDirections
	}
}
