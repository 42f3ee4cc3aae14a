package featureservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/httpx"
	"visit-route-service/internal/ports"
)

func newTestClient(token string) *Client {
	return NewClient(token, httpx.New(5*time.Second).WithBackoff(time.Millisecond))
}

func TestFetch_FollowsTransferLimitPaging(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/layer/0/query", r.URL.Path)
		assert.Equal(t, "routeable = true", r.PostForm.Get("where"))
		assert.Equal(t, "*", r.PostForm.Get("outFields"))
		assert.Equal(t, "true", r.PostForm.Get("returnGeometry"))
		assert.Equal(t, "secret", r.PostForm.Get("token"))

		switch r.PostForm.Get("resultOffset") {
		case "0":
			_, _ = w.Write([]byte(`{"exceededTransferLimit":true,"features":[
				{"attributes":{"id":1},"geometry":{"x":-46.6,"y":-23.5}},
				{"attributes":{"id":2},"geometry":{"x":-46.7,"y":-23.6}}]}`))
		case "2":
			_, _ = w.Write([]byte(`{"features":[{"attributes":{"id":3},"geometry":{"x":-46.8,"y":-23.7}}]}`))
		default:
			t.Errorf("unexpected offset %q", r.PostForm.Get("resultOffset"))
		}
	}))
	defer srv.Close()

	c := newTestClient("secret")
	got, err := c.Fetch(context.Background(), srv.URL+"/layer/0", ports.FetchOptions{
		Where:          "routeable = true",
		ReturnGeometry: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, float64(3), got[2].Attributes["id"])
	require.NotNil(t, got[0].Geometry)
	assert.Equal(t, -23.5, got[0].Geometry.Latitude())
	assert.Equal(t, -46.6, got[0].Geometry.Longitude())
}

func TestFetch_DistinctFieldDropsGeometry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "companyId", r.PostForm.Get("outFields"))
		assert.Equal(t, "true", r.PostForm.Get("returnDistinctValues"))
		assert.Equal(t, "false", r.PostForm.Get("returnGeometry"))
		assert.Equal(t, "1=1", r.PostForm.Get("where"))
		_, _ = w.Write([]byte(`{"features":[{"attributes":{"companyId":"A"}},{"attributes":{"companyId":"B"}}]}`))
	}))
	defer srv.Close()

	got, err := newTestClient("").Fetch(context.Background(), srv.URL, ports.FetchOptions{DistinctField: "companyId"})
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B"}, domain.UniqueValues("companyId", domain.Attributes(got)))
}

func TestFetch_ServiceErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":498,"message":"Invalid token.","details":[]}}`))
	}))
	defer srv.Close()

	_, err := newTestClient("bad").Fetch(context.Background(), srv.URL, ports.FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.Contains(t, err.Error(), "Invalid token.")
}

func TestFetch_HTTPFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient("").Fetch(context.Background(), srv.URL, ports.FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))

	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestFetch_EmptyURLIsConfigError(t *testing.T) {
	_, err := newTestClient("").Fetch(context.Background(), " ", ports.FetchOptions{})
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestPush_EncodesAddsAndReportsOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/applyEdits", r.URL.Path)
		assert.Empty(t, r.PostForm.Get("updates"))

		var adds []domain.Feature
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("adds")), &adds))
		require.Len(t, adds, 2)
		assert.Equal(t, "R1#20261017", adds[0].Attributes["routeName"])
		assert.Equal(t, -46.6, adds[0].Geometry.X)

		_, _ = w.Write([]byte(`{"addResults":[
			{"objectId":10,"success":true},
			{"objectId":0,"success":false,"error":{"code":1000,"description":"bad row"}}]}`))
	}))
	defer srv.Close()

	p := domain.NewPoint(-23.5, -46.6)
	res, err := newTestClient("").Push(context.Background(), srv.URL, ports.PushRequest{
		Adds: []domain.Feature{
			{Attributes: map[string]any{"routeName": "R1#20261017"}, Geometry: &p},
			{Attributes: map[string]any{"routeName": "R1#20261017"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Adds, 2)
	assert.Equal(t, int64(10), res.Adds[0].ObjectID)
	assert.Equal(t, "1000: bad row", res.Adds[1].Error)
	assert.Equal(t, 1, res.Failed())
}

func TestPush_NothingToSendSkipsRequest(t *testing.T) {
	c := NewClient("", httpx.New(time.Second))
	res, err := c.Push(context.Background(), "http://127.0.0.1:1/unused", ports.PushRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.Failed())
}

func TestRemove_WhereAndObjectIDs(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/deleteFeatures", r.URL.Path)
		got = append(got, r.PostForm.Get("where")+"|"+r.PostForm.Get("objectIds"))
		_, _ = w.Write([]byte(`{"deleteResults":[{"objectId":1,"success":true}]}`))
	}))
	defer srv.Close()

	c := newTestClient("")
	_, err := c.Remove(context.Background(), srv.URL, ports.RemoveRequest{Where: "routeDate = '20261017'"})
	require.NoError(t, err)
	_, err = c.Remove(context.Background(), srv.URL, ports.RemoveRequest{ObjectIDs: []int64{4, 5}})
	require.NoError(t, err)

	assert.Equal(t, []string{"routeDate = '20261017'|", "|4,5"}, got)

	_, err = c.Remove(context.Background(), srv.URL, ports.RemoveRequest{})
	assert.Error(t, err)
}
