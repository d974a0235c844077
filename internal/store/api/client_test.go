package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/auth"
	"billed/internal/core"
	"billed/internal/store"
)

func TestListSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bills", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]core.Bill{{ID: "1", Date: "2004-04-04"}, {ID: "2", Date: "2003-03-03"}})
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	bills, err := c.Bills().List(auth.WithToken(context.Background(), "tok"))
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "1", bills[0].ID)
}

func TestErrorStatusBecomesStoreError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))
		c := New(srv.URL, srv.Client())
		_, err := c.List(context.Background())
		srv.Close()

		var se *store.Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, status, se.Status)
		assert.Equal(t, store.NewError(status).Message, err.Error())
	}
}

func TestCreateUploadsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a@a.com", r.FormValue("email"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "test.jpg", hdr.Filename)
		assert.Equal(t, "jpg-bytes", string(body))
		_ = json.NewEncoder(w).Encode(store.UploadResult{FileURL: "https://localhost:3456/images/test.jpg", Key: "1234"})
	}))
	defer srv.Close()

	res, err := New(srv.URL, nil).Create(context.Background(), store.CreatePayload{
		File:  core.ReceiptFile{Name: "test.jpg", Content: []byte("jpg-bytes")},
		Email: "a@a.com",
	})
	require.NoError(t, err)
	assert.Equal(t, store.UploadResult{FileURL: "https://localhost:3456/images/test.jpg", Key: "1234"}, res)
}

func TestUpdatePatchesBill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/bills/1234", r.URL.Path)
		var b core.Bill
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
		b.ID = "1234"
		b.Status = core.StatusPending
		_ = json.NewEncoder(w).Encode(b)
	}))
	defer srv.Close()

	got, err := New(srv.URL, nil).Update(context.Background(), store.UpdatePayload{
		Selector: "1234",
		Bill:     core.Bill{Name: "Vol"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1234", got.ID)
	assert.Equal(t, "Vol", got.Name)
}
