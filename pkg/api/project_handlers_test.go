package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop-io/benchtop/pkg/store"
)

func (ts *testServer) createTestProject(t *testing.T, username, password, name string) *store.Project {
	t.Helper()

	w := ts.request(t, "POST", "/projects", username, password, projectRequest{
		Name:        name,
		Description: "test project",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var project store.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	require.NotZero(t, project.ID)
	return &project
}

func TestCreateProject(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.seedUser(t, "alice", "hunter2", false)

	project := ts.createTestProject(t, "alice", "hunter2", "apollo")
	assert.Equal(t, "apollo", project.Name)
	assert.Equal(t, alice.ID, project.OwnerID)
}

func TestCreateProject_DuplicateName(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	ts.createTestProject(t, "alice", "hunter2", "apollo")

	w := ts.request(t, "POST", "/projects", "alice", "hunter2", projectRequest{Name: "apollo"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "project name already taken", decodeError(t, w))
}

func TestCreateProject_RequiresName(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)

	w := ts.request(t, "POST", "/projects", "alice", "hunter2", projectRequest{Description: "nameless"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProjects(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	ts.createTestProject(t, "alice", "hunter2", "apollo")
	ts.createTestProject(t, "alice", "hunter2", "gemini")

	w := ts.request(t, "GET", "/projects", "alice", "hunter2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp projectListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Projects, 2)
}

func TestGetProject(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	created := ts.createTestProject(t, "alice", "hunter2", "apollo")

	w := ts.request(t, "GET", fmt.Sprintf("/projects/%d", created.ID), "alice", "hunter2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var project store.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, created.ID, project.ID)
	assert.Equal(t, "apollo", project.Name)
}

func TestGetProject_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)

	w := ts.request(t, "GET", "/projects/9999", "alice", "hunter2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProject_BadID(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)

	w := ts.request(t, "GET", "/projects/apollo", "alice", "hunter2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProject_Owner(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	created := ts.createTestProject(t, "alice", "hunter2", "apollo")

	w := ts.request(t, "DELETE", fmt.Sprintf("/projects/%d", created.ID), "alice", "hunter2", nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ts.request(t, "GET", fmt.Sprintf("/projects/%d", created.ID), "alice", "hunter2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProject_NonOwnerForbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	ts.seedUser(t, "mallory", "letmein", false)
	created := ts.createTestProject(t, "alice", "hunter2", "apollo")

	w := ts.request(t, "DELETE", fmt.Sprintf("/projects/%d", created.ID), "mallory", "letmein", nil)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	// The project is untouched.
	w = ts.request(t, "GET", fmt.Sprintf("/projects/%d", created.ID), "alice", "hunter2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteProject_AdminMayDeleteAnyones(t *testing.T) {
	ts := newTestServer(t)
	ts.seedUser(t, "alice", "hunter2", false)
	ts.seedUser(t, "root", "toor", true)
	created := ts.createTestProject(t, "alice", "hunter2", "apollo")

	w := ts.request(t, "DELETE", fmt.Sprintf("/projects/%d", created.ID), "root", "toor", nil)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}
