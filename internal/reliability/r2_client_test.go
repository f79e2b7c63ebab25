package reliability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a minimal path-style S3 endpoint holding objects in memory
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	puts    []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodGet && key == "":
		f.list(w, r.URL.Query().Get("prefix"))
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message><Key>%s</Key></Error>`, key)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		_, _ = w.Write(data)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.puts = append(f.puts, key)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) list(w http.ResponseWriter, prefix string) {
	keys := make([]string, 0)
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", f.bucket, prefix, len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
	}
	b.WriteString("</ListBucketResult>")

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(b.String()))
}

func newTestR2(t *testing.T) (*R2Client, *fakeS3) {
	t.Helper()

	fake := &fakeS3{bucket: "orca", objects: map[string][]byte{
		"universe/bonds.json": []byte(`[{"isin":"US195325DS19"}]`),
		"orca-backup-a.tar.gz": []byte("a"),
	}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewR2ClientWithEndpoint(server.URL, "key", "secret", "orca", zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	return client, fake
}

func TestNewR2Client_Validation(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name                          string
		account, key, secret, bucket string
	}{
		{"missing account", "", "k", "s", "b"},
		{"missing key", "acct", "", "s", "b"},
		{"missing secret", "acct", "k", "", "b"},
		{"missing bucket", "acct", "k", "s", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewR2Client(tt.account, tt.key, tt.secret, tt.bucket, log)
			assert.Error(t, err)
		})
	}

	client, err := NewR2Client("acct", "k", "s", "b", log)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestR2Client_Download(t *testing.T) {
	client, _ := newTestR2(t)

	data, err := client.Download(context.Background(), "universe/bonds.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"isin":"US195325DS19"}]`, string(data))

	_, err = client.Download(context.Background(), "universe/missing.json")
	assert.Error(t, err)
}

func TestR2Client_ListAndDelete(t *testing.T) {
	client, fake := newTestR2(t)

	objects, err := client.List(context.Background(), "orca-backup-")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "orca-backup-a.tar.gz", *objects[0].Key)
	require.NotNil(t, objects[0].Size)
	assert.Equal(t, int64(1), *objects[0].Size)

	require.NoError(t, client.Delete(context.Background(), "orca-backup-a.tar.gz"))
	_, exists := fake.objects["orca-backup-a.tar.gz"]
	assert.False(t, exists)
}

func TestR2Client_Upload(t *testing.T) {
	client, fake := newTestR2(t)

	body := []byte("archive")
	require.NoError(t, client.Upload(context.Background(), "orca-backup-b.tar.gz", bytes.NewReader(body), int64(len(body))))
	assert.Contains(t, fake.puts, "orca-backup-b.tar.gz")
}
