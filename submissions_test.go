package central

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofatutor/go-odk-central/odkerr"
)

func TestSubmissionsListYieldsTypedRecordsAndRestarts(t *testing.T) {
	mux := http.NewServeMux()
	var calls int
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[
			{"instanceId":"uuid:aaa","submitterId":4,"createdAt":"2023-03-01T00:00:00Z"},
			{"instanceId":"uuid:bbb","submitterId":4,"createdAt":"2023-03-02T00:00:00Z","reviewState":"approved"}
		]`))
	})

	client, _ := newTestClient(t, mux)
	submissions, err := client.Submissions.List(context.Background(), "f1", 0)
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	assert.Equal(t, "uuid:aaa", submissions[0].InstanceID)
	assert.Equal(t, ReviewApproved, submissions[1].ReviewState)

	// Calling List again restarts from the server.
	again, err := client.Submissions.List(context.Background(), "f1", 0)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, 2, calls)
}

func TestSubmissionsGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/7/forms/f1/submissions/uuid:aaa", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Submission{InstanceID: "uuid:aaa", SubmitterID: 4, CreatedAt: time.Now()})
	})

	client, _ := newTestClient(t, mux)
	submission, err := client.Submissions.Get(context.Background(), "uuid:aaa", "f1", 0)
	require.NoError(t, err)
	assert.Equal(t, "uuid:aaa", submission.InstanceID)
}

func TestSubmissionsCreateSendsXMLAndDeviceID(t *testing.T) {
	xml := []byte(`<data id="f1"><meta><instanceID>uuid:ccc</instanceID></meta></data>`)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		require.Equal(t, "tablet-11", r.URL.Query().Get("deviceID"))
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, xml, body)
		_ = json.NewEncoder(w).Encode(Submission{InstanceID: "uuid:ccc", SubmitterID: 4, CreatedAt: time.Now()})
	})

	client, _ := newTestClient(t, mux)
	submission, err := client.Submissions.Create(context.Background(), xml, "f1", &SubmissionCreateOptions{DeviceID: "tablet-11"})
	require.NoError(t, err)
	assert.Equal(t, "uuid:ccc", submission.InstanceID)
}

func TestSubmissionsEditWithComment(t *testing.T) {
	mux := http.NewServeMux()
	var putCalled bool
	var commentBody string
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions/uuid:aaa", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		putCalled = true
		_ = json.NewEncoder(w).Encode(Submission{InstanceID: "uuid:aaa", SubmitterID: 4, CreatedAt: time.Now()})
	})
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions/uuid:aaa/comments", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		commentBody = payload["body"]
		_ = json.NewEncoder(w).Encode(Comment{Body: commentBody, ActorID: 4, CreatedAt: time.Now()})
	})

	client, _ := newTestClient(t, mux)
	err := client.Submissions.Edit(context.Background(), "uuid:aaa", []byte(`<data/>`), &SubmissionUpdateOptions{
		FormID:  "f1",
		Comment: "fixed the age field",
	})
	require.NoError(t, err)
	assert.True(t, putCalled)
	assert.Equal(t, "fixed the age field", commentBody)
}

func TestSubmissionsReview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions/uuid:aaa", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, ReviewRejected, payload["reviewState"])
		_ = json.NewEncoder(w).Encode(Submission{InstanceID: "uuid:aaa", SubmitterID: 4, ReviewState: ReviewRejected, CreatedAt: time.Now()})
	})

	client, _ := newTestClient(t, mux)
	submission, err := client.Submissions.Review(context.Background(), "uuid:aaa", ReviewRejected, &SubmissionUpdateOptions{FormID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, ReviewRejected, submission.ReviewState)
}

func TestSubmissionsReviewRequiresState(t *testing.T) {
	mux := http.NewServeMux()
	client, requests := newTestClient(t, mux)
	_, err := client.Submissions.Review(context.Background(), "uuid:aaa", "", &SubmissionUpdateOptions{FormID: "f1"})
	assert.ErrorIs(t, err, odkerr.ErrValidation)
	assert.Equal(t, int64(0), requests.Load())
}

func TestSubmissionsComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/projects/7/forms/f1/submissions/uuid:aaa/comments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"body":"looks wrong","actorId":9,"createdAt":"2023-04-01T00:00:00Z"}]`))
	})

	client, _ := newTestClient(t, mux)
	comments, err := client.Submissions.Comments(context.Background(), "uuid:aaa", "f1", 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "looks wrong", comments[0].Body)
	assert.Equal(t, 9, comments[0].ActorID)
}

func TestSubmissionsTableQueryParameters(t *testing.T) {
	mux := http.NewServeMux()
	var gotQuery map[string][]string
	mux.HandleFunc("/v1/projects/7/forms/f1.svc/Submissions", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"@odata.context":"ctx","@odata.count":40,"value":[{"name":"Alice"},{"name":"Bob"}]}`))
	})

	client, _ := newTestClient(t, mux)
	table, err := client.Submissions.Table(context.Background(), &TableOptions{
		FormID: "f1",
		Skip:   2,
		Top:    5,
		Count:  true,
		Filter: "__system/reviewState eq 'approved'",
	})
	require.NoError(t, err)
	require.NotNil(t, table.Count)
	assert.Equal(t, int64(40), *table.Count)
	require.Len(t, table.Value, 2)
	assert.Equal(t, "Alice", table.Value[0]["name"])

	assert.Equal(t, "2", gotQuery["$skip"][0])
	assert.Equal(t, "5", gotQuery["$top"][0])
	assert.Equal(t, "true", gotQuery["$count"][0])
	assert.Equal(t, "__system/reviewState eq 'approved'", gotQuery["$filter"][0])
}

func TestNewInstanceIDFormat(t *testing.T) {
	id := NewInstanceID()
	require.True(t, strings.HasPrefix(id, "uuid:"), "id = %q", id)
	assert.Len(t, id, len("uuid:")+36)
	assert.NotEqual(t, id, NewInstanceID())
}
