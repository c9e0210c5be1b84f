package storedsafe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("vault.test", VerifyDefault(), WithBaseURL(srv.URL+APIBasePath))
	require.NoError(t, err)
	return c
}

func authCheckBody(status string) string {
	b, _ := json.Marshal(map[string]any{"CALLINFO": map[string]any{"status": status}})
	return string(b)
}

func TestAuthCheckSuccess(t *testing.T) {
	var gotHeader, gotBodyToken string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, APIBasePath+"/auth/check", r.URL.Path)
		gotHeader = r.Header.Get(TokenHeader)

		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotBodyToken = payload["token"]

		w.Write([]byte(authCheckBody("SUCCESS")))
	}))

	ok, err := c.AuthCheck(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", gotHeader)
	assert.Equal(t, "abc123", gotBodyToken)
}

func TestAuthCheckRejectedIsNotAnError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))

	ok, err := c.AuthCheck(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthCheckBadSuccessMarker(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(authCheckBody("FAIL")))
	}))

	_, err := c.AuthCheck(context.Background(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthProtocol)
}

func TestAuthCheckUnparseableBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	}))

	_, err := c.AuthCheck(context.Background(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthProtocol)
}

func TestAuthCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens anymore

	c, err := NewClient("vault.test", VerifyDefault(), WithBaseURL(url+APIBasePath))
	require.NoError(t, err)

	_, err = c.AuthCheck(context.Background(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVaultUnreachable)
}

// objectBody builds an /object response with one entry.
func objectBody(crypted, public map[string]any, top map[string]any, fileData string) []byte {
	entry := map[string]any{}
	for k, v := range top {
		entry[k] = v
	}
	if crypted != nil {
		entry["crypted"] = crypted
	}
	if public != nil {
		entry["public"] = public
	}
	body := map[string]any{"OBJECT": []any{entry}}
	if fileData != "" {
		body["FILEDATA"] = fileData
	}
	b, _ := json.Marshal(body)
	return b
}

func TestFetchObjectFieldExtractionOrder(t *testing.T) {
	tests := []struct {
		name    string
		crypted map[string]any
		public  map[string]any
		top     map[string]any
		want    string
	}{
		{
			name:    "crypted wins over top-level",
			crypted: map[string]any{"password": "from-crypted"},
			top:     map[string]any{"password": "from-top"},
			want:    "from-crypted",
		},
		{
			name:    "crypted wins over public",
			crypted: map[string]any{"password": "from-crypted"},
			public:  map[string]any{"password": "from-public"},
			want:    "from-crypted",
		},
		{
			name:   "public wins over top-level",
			public: map[string]any{"password": "from-public"},
			top:    map[string]any{"password": "from-top"},
			want:   "from-public",
		},
		{
			name: "top-level as last resort",
			top:  map[string]any{"password": "from-top"},
			want: "from-top",
		},
		{
			name: "numeric value coerced to string",
			top:  map[string]any{"password": 4242},
			want: "4242",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, APIBasePath+"/object/1337", r.URL.Path)
				assert.Equal(t, "true", r.URL.Query().Get("decrypt"))
				assert.Equal(t, "abc123", r.URL.Query().Get("token"))
				assert.Empty(t, r.URL.Query().Get("filedata"))
				w.Write(objectBody(tt.crypted, tt.public, tt.top, ""))
			}))

			outcome, err := c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1337", FieldName: "password"})
			require.NoError(t, err)
			require.Equal(t, OutcomeSuccess, outcome.Kind)
			assert.Equal(t, tt.want, outcome.Value)
		})
	}
}

func TestFetchObjectMalformedOutcomes(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{
			name: "field absent everywhere",
			body: objectBody(map[string]any{"username": "alice"}, nil, nil, ""),
		},
		{
			name: "field present but empty",
			body: objectBody(map[string]any{"password": ""}, nil, nil, ""),
		},
		{
			name: "no object entries",
			body: []byte(`{"OBJECT": []}`),
		},
		{
			name: "unparseable body",
			body: []byte("not json at all"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(tt.body)
			}))

			outcome, err := c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1337", FieldName: "password"})
			require.NoError(t, err)
			assert.Equal(t, OutcomeMalformed, outcome.Kind)
		})
	}
}

func TestFetchObjectStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantKind   OutcomeKind
		wantStatus int
	}{
		{"403 means token rejected", http.StatusForbidden, OutcomeTokenRejected, 0},
		{"404 is a fatal failure", http.StatusNotFound, OutcomeTransientFailure, 404},
		{"500 is a fatal failure", http.StatusInternalServerError, OutcomeTransientFailure, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			outcome, err := c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1337", FieldName: "password"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, outcome.Kind)
			assert.Equal(t, tt.wantStatus, outcome.StatusCode)
		})
	}
}

func TestFetchObjectDownload(t *testing.T) {
	content := "file content\nwith lines\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("filedata"))
		// field maps also carry a "download" key; it must be ignored
		w.Write(objectBody(map[string]any{"download": "decoy"}, nil, nil, encoded))
	}))

	outcome, err := c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1718", FieldName: "download"})
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, content, outcome.Value)
}

func TestFetchObjectDownloadWithoutFileData(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// entry has a plain "download" field, but no FILEDATA blob
		w.Write(objectBody(map[string]any{"download": "decoy"}, nil, nil, ""))
	}))

	outcome, err := c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1718", FieldName: "download"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, outcome.Kind)
}

func TestFetchObjectUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient("vault.test", VerifyDefault(), WithBaseURL(url+APIBasePath))
	require.NoError(t, err)

	_, err = c.FetchObject(context.Background(), "abc123", LookupTerm{ObjectID: "1337", FieldName: "password"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVaultUnreachable)
}

func TestNewClientVerifyModes(t *testing.T) {
	c, err := NewClient("safe.example.com", VerifySkip())
	require.NoError(t, err)
	assert.Equal(t, "https://safe.example.com/api/1.0", c.BaseURL())

	_, err = NewClient("safe.example.com", VerifyCABundle("/nonexistent/bundle.pem"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
