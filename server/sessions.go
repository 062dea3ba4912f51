package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/asklly/asklly/session"
)

type createSessionRequest struct {
	// CID resumes a stored conversation under a known id.
	CID    string `json:"cid"`
	BotKey string `json:"bot_key"`
}

type sessionStateResponse struct {
	CID          string    `json:"cid"`
	Agents       []string  `json:"agents,omitempty"`
	Agent        string    `json:"agent,omitempty"`
	Generating   bool      `json:"generating"`
	BrowserPort  int       `json:"browser_port,omitempty"`
	LastActivity time.Time `json:"last_activity"`
}

type queryRequest struct {
	Query  string `json:"query"`
	Org    string `json:"org"`
	UID    string `json:"uid"`
	BotKey string `json:"bot_key"`
}

type answerResponse struct {
	CID        string   `json:"cid"`
	Generating bool     `json:"generating"`
	Agent      string   `json:"agent,omitempty"`
	Answer     string   `json:"answer"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

func sessionState(s *session.Interaction) sessionStateResponse {
	resp := sessionStateResponse{
		CID:          s.CID(),
		Agent:        string(s.CurrentAgentType()),
		Generating:   s.IsGenerating(),
		BrowserPort:  s.BrowserPort(),
		LastActivity: s.LastActivity(),
	}
	for _, t := range s.AgentTypes() {
		resp.Agents = append(resp.Agents, string(t))
	}
	return resp
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	interaction, err := s.Manager.CreateSession(s.baseCtx, session.CreateSessionOptions{
		CID:    req.CID,
		BotKey: req.BotKey,
	})
	if err != nil {
		slog.Error("failed to create session", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "failed to create session")
	}
	return c.JSON(http.StatusCreated, sessionState(interaction))
}

func (s *Server) getSession(c echo.Context) error {
	interaction, ok := s.Manager.GetSession(c.Param("cid"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sessionState(interaction))
}

func (s *Server) deleteSession(c echo.Context) error {
	if err := s.Manager.CloseSession(s.baseCtx, c.Param("cid")); err != nil {
		slog.Warn("session closed with errors", "cid", c.Param("cid"), "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// postQuery stages a query and answers it in the background; clients poll
// the answer endpoint until generating turns false.
func (s *Server) postQuery(c echo.Context) error {
	cid := c.Param("cid")
	interaction, ok := s.Manager.GetSession(cid)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.BotKey != "" {
		interaction.SetBotKey(req.BotKey)
	}
	// The claim is atomic, so two racing posts cannot both start a turn.
	if !interaction.TryBeginTurn(req.Query) {
		return echo.NewHTTPError(http.StatusConflict, "session is already answering a query")
	}

	go func() {
		if _, err := interaction.Think(s.baseCtx, req.Org, req.UID); err != nil {
			slog.Error("background turn failed", "cid", cid, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"cid":        cid,
		"generating": true,
	})
}

func (s *Server) getAnswer(c echo.Context) error {
	interaction, ok := s.Manager.GetSession(c.Param("cid"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, answerResponse{
		CID:        interaction.CID(),
		Generating: interaction.IsGenerating(),
		Agent:      string(interaction.CurrentAgentType()),
		Answer:     interaction.LastAnswer(),
		Reasoning:  interaction.LastReasoning(),
		Sources:    interaction.LastSources(),
	})
}
