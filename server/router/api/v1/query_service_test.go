package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lamberr/ragline/plugin/ai/agent"
	"github.com/lamberr/ragline/store"
)

type fakeAgent struct {
	answer        string
	err           error
	gotQuery      string
	gotSenderID   string
	gotCollection string
}

func (a *fakeAgent) Ask(_ context.Context, query, senderID, collectionName string) (string, error) {
	a.gotQuery = query
	a.gotSenderID = senderID
	a.gotCollection = collectionName
	return a.answer, a.err
}

func newQueryContext(service *APIV1Service, body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	target := "/queries/ask"
	if len(params) > 0 {
		values := make([]string, 0, len(params))
		for k, v := range params {
			values = append(values, k+"="+v)
		}
		target += "?" + strings.Join(values, "&")
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAskQuery(t *testing.T) {
	fake := &fakeAgent{answer: "Data is retained for 30 days."}
	service := NewAPIV1Service(testProfile(t), store.New(newFakeDriver(), nil), fake, nil)

	c, rec := newQueryContext(service, `{"query":"How long is data retained?"}`, map[string]string{
		"sender_id":       "alice",
		"collection_name": "policies",
	})
	require.NoError(t, service.askQuery(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Data is retained for 30 days.", resp.Response)

	require.Equal(t, "How long is data retained?", fake.gotQuery)
	require.Equal(t, "alice", fake.gotSenderID)
	require.Equal(t, "policies", fake.gotCollection)
}

func TestAskQueryMissingParams(t *testing.T) {
	service := NewAPIV1Service(testProfile(t), store.New(newFakeDriver(), nil), &fakeAgent{}, nil)

	c, rec := newQueryContext(service, `{"query":"hi"}`, map[string]string{"sender_id": "alice"})
	require.NoError(t, service.askQuery(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskQueryEmptyQuery(t *testing.T) {
	service := NewAPIV1Service(testProfile(t), store.New(newFakeDriver(), nil), &fakeAgent{}, nil)

	c, rec := newQueryContext(service, `{"query":"  "}`, map[string]string{
		"sender_id":       "alice",
		"collection_name": "policies",
	})
	require.NoError(t, service.askQuery(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskQueryAgentFailure(t *testing.T) {
	fake := &fakeAgent{err: agent.NewError(agent.StageChat, context.DeadlineExceeded)}
	service := NewAPIV1Service(testProfile(t), store.New(newFakeDriver(), nil), fake, nil)

	c, rec := newQueryContext(service, `{"query":"hi"}`, map[string]string{
		"sender_id":       "alice",
		"collection_name": "policies",
	})
	require.NoError(t, service.askQuery(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "failed to answer query", resp.Message, "internal detail must not leak")
}
