// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/lessonstream/internal/auth"
	"github.com/ManuGH/lessonstream/internal/authoring"
	"github.com/ManuGH/lessonstream/internal/catalog"
	"github.com/ManuGH/lessonstream/internal/persistence/migrations"
	"github.com/ManuGH/lessonstream/internal/persistence/sqlite"
	"github.com/ManuGH/lessonstream/internal/platform/httpx"
	"github.com/ManuGH/lessonstream/internal/proxy"
	"github.com/ManuGH/lessonstream/internal/resolver"
	"github.com/ManuGH/lessonstream/internal/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-api-token"

// objectStore mimics a storage service: it signs objects over POST and serves
// signed and public objects, with range support, over GET.
type objectStore struct {
	srv      *httptest.Server
	objects  map[string][]byte
	failSign      atomic.Bool
	signed        atomic.Int32
	fetchedPublic atomic.Int32
}

func newObjectStore(t *testing.T) *objectStore {
	t.Helper()
	s := &objectStore{objects: make(map[string][]byte)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *objectStore) serve(w http.ResponseWriter, r *http.Request) {
	const publicPrefix = "/storage/v1/object/public/"
	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, publicPrefix) {
		s.fetchedPublic.Add(1)
		s.serveObject(w, r, strings.TrimPrefix(r.URL.Path, publicPrefix))
		return
	}

	const prefix = "/storage/v1/object/sign/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodPost:
		if s.failSign.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"storage unavailable"}`))
			return
		}
		if _, ok := s.objects[key]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"Object not found"}`))
			return
		}
		n := s.signed.Add(1)
		object := strings.TrimPrefix(r.URL.EscapedPath(), "/storage/v1")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"signedURL": object + "?token=tok-" + string(rune('a'+n%26)),
		})
	case http.MethodGet:
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.serveObject(w, r, key)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *objectStore) serveObject(w http.ResponseWriter, r *http.Request, key string) {
	data, ok := s.objects[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(data))
}

type testEnv struct {
	store   *catalog.Store
	storage *objectStore
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "lessons.db"), sqlite.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = migrations.Up(ctx, db, "sqlite")
	require.NoError(t, err)
	store := catalog.NewStore(db, catalog.DialectSQLite)

	storage := newObjectStore(t)
	signer, err := signing.NewSupabaseSigner(storage.srv.URL, "service-key", httpx.NewClient(5*time.Second))
	require.NoError(t, err)

	rangeProxy, err := proxy.New(httpx.NewUpstreamClient(httpx.UpstreamOptions{}), 1024)
	require.NoError(t, err)

	srv, err := New(Deps{
		Resolver:  resolver.New(store, "videos"),
		Issuer:    signing.NewIssuer(signer, signing.IssuerOptions{BreakerThreshold: 100}),
		Proxy:     rangeProxy,
		Authoring: authoring.NewService(store, "videos"),
		Auth:      auth.NewAuthenticator(testToken, "", false),
	}, Options{})
	require.NoError(t, err)

	_, err = store.CreateCourse(ctx, catalog.Course{ID: "C1", Title: "Go", IsPublished: true})
	require.NoError(t, err)

	return &testEnv{store: store, storage: storage, handler: srv.Handler()}
}

func (e *testEnv) topic(t *testing.T, videoURL string, orderIndex int) catalog.Topic {
	t.Helper()
	topic, err := e.store.InsertTopic(context.Background(), catalog.NewTopic{
		CourseID: "C1", Title: "Lesson", VideoURL: videoURL, OrderIndex: orderIndex,
	})
	require.NoError(t, err)
	return topic
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestStreamVideo_MediaRecordBeatsTopicURL(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/a.mp4"] = []byte("bytes-of-a")
	env.storage.objects["videos/other.mp4"] = []byte("bytes-of-other")

	topic := env.topic(t, env.storage.srv.URL+"/storage/v1/object/public/videos/other.mp4", 1)
	_, err := env.store.InsertMediaRecord(context.Background(), catalog.NewMediaRecord{TopicID: topic.ID, Title: "Lesson", Path: "a.mp4"})
	require.NoError(t, err)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/video?topicId="+topic.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bytes-of-a", rec.Body.String())
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
}

func TestStreamVideo_LegacyPublicURLFetchedDirectly(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/b.mp4"] = []byte("bytes-of-b")
	env.storage.failSign.Store(true)

	topic := env.topic(t, env.storage.srv.URL+"/storage/v1/object/public/videos/b.mp4", 1)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/video?topicId="+topic.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bytes-of-b", rec.Body.String())
	assert.Zero(t, env.storage.signed.Load())
	assert.EqualValues(t, 1, env.storage.fetchedPublic.Load())
}

func TestStreamVideo_SignURLParamIsResigned(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/s.mp4"] = []byte("bytes-of-s")
	topic := env.topic(t, "", 1)

	ref := url.QueryEscape(env.storage.srv.URL + "/storage/v1/object/sign/videos/s.mp4?token=expired")
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/video?topicId="+topic.ID+"&url="+ref, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "bytes-of-s", rec.Body.String())
	assert.EqualValues(t, 1, env.storage.signed.Load())
}

func TestStreamVideo_Range(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/r.mp4"] = []byte("0123456789abcdef")
	topic := env.topic(t, "r.mp4", 1)

	tests := []struct {
		name       string
		rangeHdr   string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{name: "no range", wantStatus: http.StatusOK, wantBody: "0123456789abcdef"},
		{name: "bounded", rangeHdr: "bytes=0-3", wantStatus: http.StatusPartialContent, wantBody: "0123", wantRange: "bytes 0-3/16"},
		{name: "open ended", rangeHdr: "bytes=10-", wantStatus: http.StatusPartialContent, wantBody: "abcdef", wantRange: "bytes 10-15/16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/video?topicId="+topic.ID, nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := env.do(t, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantRange, rec.Header().Get("Content-Range"))
		})
	}
}

func TestStreamVideo_URLParamOverridesStoredReference(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/direct.mp4"] = []byte("direct")
	topic := env.topic(t, "", 1)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/video?topicId="+topic.ID+"&url=direct.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "direct", rec.Body.String())
}

func TestStreamVideo_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/ok.mp4"] = []byte("ok")
	empty := env.topic(t, "", 1)
	missingObject := env.topic(t, env.storage.srv.URL+"/files/missing.mp4", 2)
	stored := env.topic(t, "ok.mp4", 3)

	tests := []struct {
		name       string
		target     string
		failSign   bool
		wantStatus int
		wantError  string
	}{
		{name: "missing topic id", target: "/video", wantStatus: http.StatusBadRequest, wantError: "Missing topicId parameter"},
		{name: "topic without reference", target: "/video?topicId=" + empty.ID, wantStatus: http.StatusNotFound, wantError: "Video not found"},
		{name: "unknown topic", target: "/video?topicId=nope", wantStatus: http.StatusNotFound, wantError: "Video not found"},
		{name: "unknown topic with url", target: "/video?topicId=nope&url=ok.mp4", wantStatus: http.StatusNotFound, wantError: "Topic not found"},
		{name: "malformed url param", target: "/video?topicId=" + stored.ID + "&url=http://", wantStatus: http.StatusBadRequest, wantError: "Invalid video path or URL"},
		{name: "upstream 404", target: "/video?topicId=" + missingObject.ID, wantStatus: http.StatusInternalServerError, wantError: "Failed to fetch video"},
		{name: "signing failure", target: "/video?topicId=" + stored.ID, failSign: true, wantStatus: http.StatusInternalServerError, wantError: "Failed to generate video URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.storage.failSign.Store(tt.failSign)
			defer env.storage.failSign.Store(false)

			rec := env.do(t, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorBody(t, rec))
			assert.NotContains(t, rec.Body.String(), env.storage.srv.URL)
		})
	}
}

func TestSignedURL(t *testing.T) {
	env := newTestEnv(t)
	env.storage.objects["videos/a.mp4"] = []byte("a")
	stored := env.topic(t, "a.mp4", 1)
	external := env.topic(t, "https://cdn.example.com/intro.mp4", 2)
	empty := env.topic(t, "", 3)

	authed := func(target string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		return req
	}

	t.Run("requires auth", func(t *testing.T) {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/video/signed-url?topicId="+stored.ID, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("storage path is signed", func(t *testing.T) {
		first := env.do(t, authed("/video/signed-url?topicId="+stored.ID))
		require.Equal(t, http.StatusOK, first.Code, first.Body.String())
		var got signing.SignedAccessURL
		require.NoError(t, json.Unmarshal(first.Body.Bytes(), &got))
		assert.True(t, strings.HasPrefix(got.URL, env.storage.srv.URL+"/storage/v1/object/sign/videos/a.mp4?token="), got.URL)
		require.NotNil(t, got.ExpiresIn)
		assert.Equal(t, 3600, *got.ExpiresIn)

		second := env.do(t, authed("/video/signed-url?topicId="+stored.ID))
		assert.Equal(t, http.StatusOK, second.Code)
	})

	t.Run("external url passes through", func(t *testing.T) {
		rec := env.do(t, authed("/video/signed-url?topicId="+external.ID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"url":"https://cdn.example.com/intro.mp4","expiresIn":null}`, rec.Body.String())
	})

	t.Run("missing topic id", func(t *testing.T) {
		rec := env.do(t, authed("/video/signed-url"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing topic ID", errorBody(t, rec))
	})

	t.Run("no reference", func(t *testing.T) {
		rec := env.do(t, authed("/video/signed-url?topicId="+empty.ID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Video not available", errorBody(t, rec))
	})

	t.Run("signing failure", func(t *testing.T) {
		env.storage.failSign.Store(true)
		defer env.storage.failSign.Store(false)
		rec := env.do(t, authed("/video/signed-url?topicId="+stored.ID))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to generate video URL", errorBody(t, rec))
	})
}

func TestCreateVideo(t *testing.T) {
	env := newTestEnv(t)
	env.topic(t, "one.mp4", 1)
	env.topic(t, "two.mp4", 2)

	post := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/video", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Token", testToken)
		return req
	}

	t.Run("appends with next order index", func(t *testing.T) {
		videoURL := env.storage.srv.URL + "/storage/v1/object/public/lesson-videos/week1/c.mp4"
		rec := env.do(t, post(`{"title":"Third","url":"`+videoURL+`","courseId":"C1"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp struct {
			Message string         `json:"message"`
			Data    catalog.Topic `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Video created successfully", resp.Message)
		assert.Equal(t, 3, resp.Data.OrderIndex)
		assert.Equal(t, videoURL, resp.Data.VideoURL)

		rec2, found, err := env.store.MediaRecordForTopic(context.Background(), resp.Data.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "week1/c.mp4", rec2.Path)
		assert.Equal(t, "lesson-videos", rec2.Bucket)
	})

	t.Run("missing field", func(t *testing.T) {
		rec := env.do(t, post(`{"title":"x","courseId":"C1"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields: title, url, courseId", errorBody(t, rec))
	})

	t.Run("unknown course", func(t *testing.T) {
		rec := env.do(t, post(`{"title":"x","url":"x.mp4","courseId":"nope"}`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to create topic record", errorBody(t, rec))
	})

	t.Run("requires auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/video", strings.NewReader(`{}`))
		rec := env.do(t, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		rec := env.do(t, post(`{"title":"`+strings.Repeat("x", 70<<10)+`"}`))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestStreamVideo_OverRealConnection(t *testing.T) {
	env := newTestEnv(t)
	payload := bytes.Repeat([]byte("lesson"), 4096)
	env.storage.objects["videos/long.mp4"] = payload
	topic := env.topic(t, "long.mp4", 1)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/video?topicId=" + topic.ID)
	require.NoError(t, err)
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, payload, got)
}
