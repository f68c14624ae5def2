package planapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

const treeBody = `{
	"status": "success",
	"data": {
		"id": "PLAN-1",
		"guid": "g-plan",
		"name": "Exercise Plan",
		"missionNetworks": [
			{
				"id": "MN-1",
				"guid": "g-mn1",
				"name": "Mission Network 1",
				"networkSegments": [
					{"id": "NS-1", "guid": "g-ns1", "name": "Segment Alpha"}
				]
			}
		]
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestFetchTree(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(treeBody))
	})

	root, err := client.FetchTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TreePath, gotPath)
	assert.Equal(t, cisplan.TypeCISPlan, root.Type)

	ns := cisplan.FindByGUID(root, "g-ns1")
	require.NotNil(t, ns)
	assert.Equal(t, cisplan.TypeNetworkSegment, ns.Type)
}

func TestFetchTreeShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no envelope", `{"id":"PLAN-1","guid":"g","name":"p"}`},
		{"data is an array", `{"status":"success","data":[1,2]}`},
		{"missing data", `{"status":"success"}`},
		{"not json", `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := client.FetchTree(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetchTreeServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"plan store offline"}`))
	})

	_, err := client.FetchTree(context.Background())
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, "plan store offline", apiErr.Message)
}

func TestFetchTreeHTTPStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	_, err := client.FetchTree(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchEntity(t *testing.T) {
	var gotPath string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":"success","data":{"id":"AS-1","guid":"g-as1","name":"Router 1","serialNumber":"SN-77"}}`))
	})

	e, err := client.FetchEntity(context.Background(), cisplan.TypeAsset, "AS-1")
	require.NoError(t, err)
	assert.Equal(t, "/api/assets/AS-1", gotPath)
	assert.Equal(t, cisplan.TypeAsset, e.Type)
	assert.Equal(t, "SN-77", e.Attrs["serialNumber"])

	_, err = client.FetchEntity(context.Background(), cisplan.TypeCISPlan, "PLAN-1")
	assert.Error(t, err, "the root is not fetchable by id")

	_, err = client.FetchEntity(context.Background(), cisplan.EntityType("bogus"), "X-1")
	assert.Error(t, err)
}

func TestMoveEntity(t *testing.T) {
	var gotMethod, gotBody string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"status":"success"}`))
	})

	err := client.MoveEntity(context.Background(), "g-as1", "g-hw2")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.JSONEq(t, `{"elementId":"g-as1","newParentId":"g-hw2"}`, gotBody)
}

func TestMoveEntityInvalidRelationship(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"error","message":"Invalid parent-child relationship: asset under securityDomain. Valid parent type is: hwStack"}`))
	})

	err := client.MoveEntity(context.Background(), "g-as1", "g-sd1")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "Valid parent type is: hwStack")
}

func TestUpdateAndDelete(t *testing.T) {
	var methods []string
	var paths []string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"status":"success"}`))
	})

	require.NoError(t, client.UpdateEntity(context.Background(), cisplan.TypeHWStack, "HW-1", map[string]string{"name": "Stack A"}))
	require.NoError(t, client.DeleteEntity(context.Background(), cisplan.TypeGPInstance, "GP-2"))

	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
	assert.Equal(t, []string{"/api/hw_stacks/HW-1", "/api/gp_instances/GP-2"}, paths)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CISPLAN_API_URL", "http://plan.example:9000")
	t.Setenv("CISPLAN_API_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://plan.example:9000", cfg.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Timeout)

	t.Setenv("CISPLAN_API_TIMEOUT", "ninety")
	_, err = LoadConfig()
	assert.Error(t, err)
}
