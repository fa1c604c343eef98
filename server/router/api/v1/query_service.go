package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lamberr/ragline/plugin/ai/agent"
	"github.com/lamberr/ragline/store"
)

type askQueryRequest struct {
	Query string `json:"query"`
}

type askQueryResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// askQuery answers one user query against a collection. Sender and
// collection identify the session; the body carries only the query text.
func (s *APIV1Service) askQuery(c echo.Context) error {
	senderID := strings.TrimSpace(c.QueryParam("sender_id"))
	collectionName := strings.TrimSpace(c.QueryParam("collection_name"))
	if senderID == "" || collectionName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "sender_id and collection_name are required"})
	}

	var req askQueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "query cannot be empty"})
	}

	answer, err := s.Agent.Ask(c.Request().Context(), req.Query, senderID, collectionName)
	if err != nil {
		var agentErr *agent.Error
		if errors.As(err, &agentErr) {
			slog.Error("query failed", "sender_id", senderID, "stage", agentErr.Stage, "error", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to answer query"})
		}
		slog.Error("query failed", "sender_id", senderID, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to answer query"})
	}

	return c.JSON(http.StatusOK, askQueryResponse{Response: answer})
}

type conversationView struct {
	ID             int32  `json:"id"`
	SenderID       string `json:"sender_id"`
	CollectionName string `json:"collection_name"`
	Query          string `json:"query"`
	Response       string `json:"response"`
	CreatedTs      int64  `json:"created_ts"`
}

// listConversations returns persisted exchanges, most recent first.
func (s *APIV1Service) listConversations(c echo.Context) error {
	find := &store.FindConversation{}
	if senderID := strings.TrimSpace(c.QueryParam("sender_id")); senderID != "" {
		find.SenderID = &senderID
	}
	if collectionName := strings.TrimSpace(c.QueryParam("collection_name")); collectionName != "" {
		find.CollectionName = &collectionName
	}
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid limit"})
		}
		find.Limit = &limit
	}

	conversations, err := s.Store.ListConversations(c.Request().Context(), find)
	if err != nil {
		slog.Error("failed to list conversations", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to list conversations"})
	}

	views := make([]conversationView, 0, len(conversations))
	for _, conversation := range conversations {
		views = append(views, conversationView{
			ID:             conversation.ID,
			SenderID:       conversation.SenderID,
			CollectionName: conversation.CollectionName,
			Query:          conversation.Query,
			Response:       conversation.Response,
			CreatedTs:      conversation.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, views)
}
