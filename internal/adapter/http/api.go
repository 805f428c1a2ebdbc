package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/svg-world-map/internal/domain"
	"github.com/couchcryptid/svg-world-map/internal/pipeline"
	"github.com/couchcryptid/svg-world-map/internal/regionindex"
	"github.com/couchcryptid/svg-world-map/internal/timeline"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/regions", s.withSession(s.handleRegions))
	mux.HandleFunc("GET /api/regions/{id}", s.withSession(s.handleRegion))
	mux.HandleFunc("GET /api/groups", s.withSession(s.handleGroups))
	mux.HandleFunc("GET /api/labels", s.withSession(s.handleLabels))
	mux.HandleFunc("GET /api/series/{id}", s.withSession(s.handleSeries))
	mux.HandleFunc("GET /api/stats/{id}", s.withSession(s.handleStats))
	mux.HandleFunc("GET /api/ranking", s.withSession(s.handleRanking))
	mux.HandleFunc("GET /api/report", s.withSession(s.handleReport))
	mux.HandleFunc("GET /api/snapshots/{day}", s.withSession(s.handleSnapshot))
	mux.HandleFunc("GET /api/timeline", s.withSession(s.handleTimeline))
	mux.HandleFunc("POST /api/timeline/seek", s.withSession(s.handleSeek))
	mux.HandleFunc("POST /api/timeline/{action}", s.withSession(s.handleTimelineAction))
	mux.HandleFunc("POST /api/map/highlight/{id}/{mode}", s.withSession(s.handleHighlight))
	mux.HandleFunc("POST /api/map/pointer/{id}/{mode}", s.withSession(s.handlePointer))
	mux.HandleFunc("POST /api/map/select/{id}", s.withSession(s.handleSelect))
	mux.HandleFunc("POST /api/map/deselect", s.withSession(s.handleDeselect))
	mux.HandleFunc("POST /api/map/labels/{which}", s.withSession(s.handleLabelsToggle))
	mux.HandleFunc("GET /api/map.svg", s.withSession(s.handleMapSVG))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *pipeline.Session)

// withSession answers 503 until the first build has been activated.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Session()
		if sess == nil {
			writeError(w, http.StatusServiceUnavailable, "map not built yet")
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	writeJSON(w, http.StatusOK, sess.Index.Countries())
}

type regionResponse struct {
	Region    regionindex.Region       `json:"region"`
	Display   regionindex.DisplayState `json:"display"`
	Provinces []regionindex.Region     `json:"provinces,omitempty"`
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	id := r.PathValue("id")
	region, ok := sess.Index.Resolve(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown region %q", id))
		return
	}
	resp := regionResponse{Region: region}
	resp.Display, _ = sess.Index.Display(id)
	if region.Kind == regionindex.KindCountry {
		resp.Provinces, _ = sess.Index.Provinces(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	writeJSON(w, http.StatusOK, sess.Index.Groups())
}

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	writeJSON(w, http.StatusOK, sess.Index.Labels())
}

// seriesFor resolves a region series and an optional province breakdown.
func seriesFor(r *http.Request, sess *pipeline.Session) (*domain.DailySeries, error) {
	id := r.PathValue("id")
	series := sess.Table.Get(id)
	if series == nil {
		return nil, fmt.Errorf("no series for region %q", id)
	}
	if name := r.URL.Query().Get("province"); name != "" {
		series = series.Province(name)
		if series == nil {
			return nil, fmt.Errorf("no series for province %q of %q", name, id)
		}
	}
	return series, nil
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	series, err := seriesFor(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// dayParam reads ?day=N, defaulting to the timeline's current day.
func dayParam(r *http.Request, sess *pipeline.Session) (int, error) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		return sess.Timeline.Position().Index, nil
	}
	day, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q", raw)
	}
	return day, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	day, err := dayParam(r, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := seriesFor(r, sess)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	stats, ok := series.StatsAt(day)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("day %d out of range", day))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	day, err := dayParam(r, sess)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ranking := sess.Table.Ranking(day, r.URL.Query().Get("q"), sess.Metadata)
	if ranking == nil {
		ranking = []domain.RankEntry{}
	}
	writeJSON(w, http.StatusOK, ranking)
}

type reportResponse struct {
	BuildID string                 `json:"build_id"`
	BuiltAt string                 `json:"built_at"`
	Source  string                 `json:"source"`
	Days    int                    `json:"days"`
	Regions int                    `json:"regions"`
	Report  domain.NormalizeReport `json:"report"`
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	writeJSON(w, http.StatusOK, reportResponse{
		BuildID: sess.BuildID,
		BuiltAt: sess.BuiltAt.UTC().Format(time.RFC3339),
		Source:  sess.Source,
		Days:    len(sess.Snapshots),
		Regions: len(sess.Table.IDs()),
		Report:  sess.Table.Report,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	raw := r.PathValue("day")
	day, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid day %q", raw))
		return
	}
	snap, ok := sess.Timeline.Snapshot(day)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("day %d out of range", day))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	writeJSON(w, http.StatusOK, sess.Timeline.Position())
}

var timelineActions = map[string]func(*timeline.Controller){
	"play":    (*timeline.Controller).Play,
	"pause":   (*timeline.Controller).Pause,
	"toggle":  (*timeline.Controller).Toggle,
	"forward": (*timeline.Controller).StepForward,
	"back":    (*timeline.Controller).StepBack,
	"start":   (*timeline.Controller).StepToStart,
	"end":     (*timeline.Controller).StepToEnd,
	"faster":  (*timeline.Controller).Faster,
	"slower":  (*timeline.Controller).Slower,
}

func (s *Server) handleTimelineAction(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	action := r.PathValue("action")
	fn, ok := timelineActions[action]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown timeline action %q", action))
		return
	}
	fn(sess.Timeline)
	writeJSON(w, http.StatusOK, sess.Timeline.Position())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	raw := r.URL.Query().Get("day")
	day, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid day %q", raw))
		return
	}
	sess.Timeline.Seek(day)
	writeJSON(w, http.StatusOK, sess.Timeline.Position())
}

type selectionResponse struct {
	Selected *regionindex.Region `json:"selected"`
}

func currentSelection(sess *pipeline.Session) selectionResponse {
	if r, ok := sess.Index.Selected(); ok {
		return selectionResponse{Selected: &r}
	}
	return selectionResponse{}
}

// writeIndexError maps index errors onto status codes.
func writeIndexError(w http.ResponseWriter, err error, subject string) {
	if errors.Is(err, regionindex.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown %s", subject))
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	mode, err := regionindex.ParseMode(r.PathValue("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	if err := sess.Index.Highlight(id, mode); err != nil {
		writeIndexError(w, err, fmt.Sprintf("region %q", id))
		return
	}
	display, _ := sess.Index.Display(id)
	writeJSON(w, http.StatusOK, display)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	mode, err := regionindex.ParseMode(r.PathValue("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	if err := sess.Index.HandlePointer(regionindex.PointerEvent{TargetID: id, Mode: mode}); err != nil {
		writeIndexError(w, err, fmt.Sprintf("region %q", id))
		return
	}
	writeJSON(w, http.StatusOK, currentSelection(sess))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	id := r.PathValue("id")
	if err := sess.Index.Select(id); err != nil {
		writeIndexError(w, err, fmt.Sprintf("region %q", id))
		return
	}
	writeJSON(w, http.StatusOK, currentSelection(sess))
}

func (s *Server) handleDeselect(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	sess.Index.Deselect()
	writeJSON(w, http.StatusOK, currentSelection(sess))
}

func (s *Server) handleLabelsToggle(w http.ResponseWriter, r *http.Request, sess *pipeline.Session) {
	which := r.PathValue("which")
	if err := sess.Index.ToggleLabels(regionindex.LabelSet(which)); err != nil {
		writeIndexError(w, err, fmt.Sprintf("label set %q", which))
		return
	}
	writeJSON(w, http.StatusOK, sess.Index.Labels())
}

func (s *Server) handleMapSVG(w http.ResponseWriter, _ *http.Request, sess *pipeline.Session) {
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := sess.Render(w); err != nil {
		s.logger.Error("render map failed", "error", err, "build_id", sess.BuildID)
	}
}
