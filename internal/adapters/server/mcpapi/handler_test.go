package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/hylla/tavla/internal/adapters/storage/sqlite"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// boardFixture holds one sqlite-backed service with a seeded project.
type boardFixture struct {
	svc     *app.Service
	project domain.Project
	todo    domain.Task
	server  *httptest.Server
}

// newBoardFixture seeds a board and serves the MCP handler over httptest.
func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	n := 0
	svc := app.NewService(repo, func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}, nil, app.ServiceConfig{})
	ctx := context.Background()
	project, err := svc.EnsureDefaultProject(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultProject() error = %v", err)
	}
	todo, err := svc.CreateTask(ctx, app.CreateTaskInput{ProjectID: project.ID, Title: "Draft"})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if _, err := svc.CreateTask(ctx, app.CreateTaskInput{ProjectID: project.ID, Title: "Review", Status: domain.StatusInProgress}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	handler, err := NewHandler(Config{}, svc)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &boardFixture{svc: svc, project: project, todo: todo, server: server}
}

// call sends one tools/call request.
func (f *boardFixture) call(t *testing.T, id int, tool string, args map[string]any) jsonRPCResponse {
	t.Helper()
	_, resp := postJSONRPC(t, f.server.Client(), f.server.URL, callToolRequest(id, tool, args))
	return resp
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "tavla-test",
				"version": "1.0.0",
			},
		},
	}
}

// TestNewHandlerRequiresService verifies construction fails without a board.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error for nil board service")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	f := newBoardFixture(t)
	resp, decoded := postJSONRPC(t, f.server.Client(), f.server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersBoardTools verifies tool discovery lists every board tool.
func TestHandlerRegistersBoardTools(t *testing.T) {
	f := newBoardFixture(t)
	_, _ = postJSONRPC(t, f.server.Client(), f.server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, f.server.Client(), f.server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, required := range []string{"tavla.list_projects", "tavla.list_tasks", "tavla.move_task", "tavla.drag_task"} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

// TestListTasksGroupsColumns verifies the board payload for one project.
func TestListTasksGroupsColumns(t *testing.T) {
	f := newBoardFixture(t)
	resp := f.call(t, 2, "tavla.list_tasks", map[string]any{"project_id": f.project.ID})
	structured := toolResultStructured(t, resp.Result)
	columns, ok := structured["columns"].([]any)
	if !ok || len(columns) != 3 {
		t.Fatalf("columns = %#v, want three", structured["columns"])
	}
	todo, _ := columns[0].(map[string]any)
	tasks, _ := todo["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("todo tasks = %#v, want one", todo["tasks"])
	}
}

// TestListProjects verifies project summaries are returned.
func TestListProjects(t *testing.T) {
	f := newBoardFixture(t)
	resp := f.call(t, 2, "tavla.list_projects", map[string]any{})
	structured := toolResultStructured(t, resp.Result)
	projects, ok := structured["projects"].([]any)
	if !ok || len(projects) != 1 {
		t.Fatalf("projects = %#v, want one", structured["projects"])
	}
	row, _ := projects[0].(map[string]any)
	if got, _ := row["total"].(float64); got != 2 {
		t.Fatalf("total = %v, want 2", row["total"])
	}
}

// TestDragTaskAppliesPolicy verifies a drag past the threshold shifts one column and persists.
func TestDragTaskAppliesPolicy(t *testing.T) {
	f := newBoardFixture(t)
	resp := f.call(t, 2, "tavla.drag_task", map[string]any{"task_id": f.todo.ID, "dx": 200.0, "dy": 30.0})
	structured := toolResultStructured(t, resp.Result)
	if changed, _ := structured["changed"].(bool); !changed {
		t.Fatalf("changed = %v, want true", structured["changed"])
	}
	task, _ := structured["task"].(map[string]any)
	if got, _ := task["status"].(string); got != string(domain.StatusInProgress) {
		t.Fatalf("status = %q, want in_progress", got)
	}
	if got, _ := task["order"].(float64); got != 1 {
		t.Fatalf("order = %v, want append position 1", task["order"])
	}

	stored, err := f.svc.GetTask(context.Background(), f.todo.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if stored.Status != domain.StatusInProgress {
		t.Fatalf("stored status = %q, want in_progress", stored.Status)
	}

	resp = f.call(t, 3, "tavla.drag_task", map[string]any{"task_id": f.todo.ID, "dx": 40.0})
	structured = toolResultStructured(t, resp.Result)
	if changed, _ := structured["changed"].(bool); changed {
		t.Fatalf("short drag changed status: %#v", structured)
	}
}

// TestMoveTaskPlacesTask verifies explicit moves and status parsing.
func TestMoveTaskPlacesTask(t *testing.T) {
	f := newBoardFixture(t)
	resp := f.call(t, 2, "tavla.move_task", map[string]any{"task_id": f.todo.ID, "status": "done"})
	structured := toolResultStructured(t, resp.Result)
	if got, _ := structured["from"].(string); got != "todo" {
		t.Fatalf("from = %q, want todo", got)
	}
	task, _ := structured["task"].(map[string]any)
	if got, _ := task["status"].(string); got != "done" {
		t.Fatalf("status = %q, want done", got)
	}
}

// TestToolErrors verifies argument and service errors surface as tool errors.
func TestToolErrors(t *testing.T) {
	f := newBoardFixture(t)

	missing := f.call(t, 2, "tavla.drag_task", map[string]any{"task_id": f.todo.ID})
	if isError, _ := missing.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missing.Result["isError"])
	}

	unknown := f.call(t, 3, "tavla.move_task", map[string]any{"task_id": "nope", "status": "done"})
	if got := toolResultText(t, unknown.Result); !strings.HasPrefix(got, "not_found:") {
		t.Fatalf("error text = %q, want prefix not_found:", got)
	}

	badStatus := f.call(t, 4, "tavla.move_task", map[string]any{"task_id": f.todo.ID, "status": "later"})
	if got := toolResultText(t, badStatus.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("error text = %q, want prefix invalid_request:", got)
	}
}
