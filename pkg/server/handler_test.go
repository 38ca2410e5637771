package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newMCPRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(nil, nil, nil)
	r.POST("/mcp", h.MCPHandler)
	return r
}

func postMCP(t *testing.T, r *gin.Engine, sessionID string, body MCPRequest) (*httptest.ResponseRecorder, MCPResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp MCPResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body: %s)", err, w.Body.String())
	}
	return w, resp
}

func TestMCPInitialize(t *testing.T) {
	r := newMCPRouter(t)

	w, resp := postMCP(t, r, "", MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if w.Header().Get("Mcp-Session-Id") == "" {
		t.Error("initialize did not assign a session id")
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("result = %T", resp.Result)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
}

func TestMCPRequiresSession(t *testing.T) {
	r := newMCPRouter(t)

	tests := []struct {
		name      string
		sessionID string
		wantCode  int
	}{
		{"Missing session", "", -32000},
		{"Unknown session", "not-a-real-session", -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := postMCP(t, r, tt.sessionID, MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestMCPToolsListAndPing(t *testing.T) {
	r := newMCPRouter(t)

	w, _ := postMCP(t, r, "", MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	sessionID := w.Header().Get("Mcp-Session-Id")

	_, resp := postMCP(t, r, sessionID, MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("tools/list error: %+v", resp.Error)
	}
	data, _ := json.Marshal(resp.Result)
	if !bytes.Contains(data, []byte("extreme_search")) {
		t.Errorf("tools/list missing the research tool: %s", data)
	}

	_, resp = postMCP(t, r, sessionID, MCPRequest{JSONRPC: "2.0", ID: 3, Method: "ping"})
	if resp.Error != nil {
		t.Errorf("ping error: %+v", resp.Error)
	}

	_, resp = postMCP(t, r, sessionID, MCPRequest{JSONRPC: "2.0", ID: 4, Method: "no/such/method"})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("unknown method error = %+v, want -32601", resp.Error)
	}
}

func TestMCPUnknownTool(t *testing.T) {
	r := newMCPRouter(t)

	w, _ := postMCP(t, r, "", MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	sessionID := w.Header().Get("Mcp-Session-Id")

	params, _ := json.Marshal(map[string]interface{}{"name": "bogus", "arguments": map[string]string{}})
	_, resp := postMCP(t, r, sessionID, MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("unknown tool error = %+v, want -32601", resp.Error)
	}
}
