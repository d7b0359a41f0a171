package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service, *fakeMailer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, mailer := newTestService(t)

	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	NewHandler(svc).RegisterRoutes(&r.RouterGroup, deny, pass)
	return r, svc, mailer
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSubscribeRoute(t *testing.T) {
	r, _, mailer := newTestRouter(t)

	w := postForm(r, "/subscribe", url.Values{"email": {"Foo@Bar.COM"}, "timezone": {"-5"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/subscribed", w.Header().Get("Location"))
	assert.Equal(t, []string{"foo@bar.com"}, mailer.sent)

	w = postForm(r, "/subscribe", url.Values{"email": {"foo@bar.com"}, "timezone": {"-5"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrDuplicateEmail.Error())

	w = postForm(r, "/subscribe", url.Values{"email": {"bar@bar.com"}, "timezone": {"EST"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrInvalidTimezone.Error())

	w = postForm(r, "/subscribe", url.Values{"email": {"nope"}, "timezone": {"1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeRouteAcceptsJSON(t *testing.T) {
	r, _, mailer := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"json@bar.com","timezone":9}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, []string{"json@bar.com"}, mailer.sent)
}

func TestLifecycleRoutes(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	ctx := context.Background()
	sub, err := svc.Subscribe(ctx, "foo@bar.com", 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/verify/"+sub.Code).Code)
	assert.Equal(t, http.StatusOK, get(r, "/verify/"+sub.Code).Code)
	assert.Equal(t, http.StatusOK, get(r, "/verify/nonexistent-code").Code)

	w := get(r, "/timezone/"+sub.Code)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Code     string `json:"code"`
		Timezone int    `json:"timezone"`
		Zones    []any  `json:"zones"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, sub.Code, body.Code)
	assert.Len(t, body.Zones, 24)

	w = postForm(r, "/timezone/"+sub.Code, url.Values{"timezone": {"8"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/timezoned", w.Header().Get("Location"))
	found, _ := svc.Find(ctx, sub.Code)
	assert.Equal(t, 8, found.TimezoneOffset)

	w = postForm(r, "/timezone/"+sub.Code, url.Values{"timezone": {"14"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, get(r, "/unsubscribe/"+sub.Code).Code)
	assert.Equal(t, http.StatusOK, get(r, "/unsubscribe/"+sub.Code).Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/timezone/"+sub.Code).Code)
}

func TestStaticRoutes(t *testing.T) {
	r, _, _ := newTestRouter(t)
	for _, path := range []string{"/subscribed", "/timezoned", "/timezones"} {
		assert.Equal(t, http.StatusOK, get(r, path).Code, path)
	}
}

func TestAdminListRequiresAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin/subscriptions").Code)
}
