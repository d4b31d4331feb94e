package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/worksledger/internal/models"
	"github.com/starford/worksledger/internal/testutil"
	"github.com/starford/worksledger/internal/worksservice"
)

const duneJSON = `{"id":1,"title":"Dune","author":"Herbert","press":"Ace","status":"published","pressDate":"1965-08-01"}`

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(worksservice.NewService(testutil.TestLedger(t)))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_works":
		result, err = srv.getWorks(ctx, req)
	case "create_works":
		result, err = srv.createWorks(ctx, req)
	case "update_works":
		result, err = srv.updateWorks(ctx, req)
	case "delete_works":
		result, err = srv.deleteWorks(ctx, req)
	case "list_works_by_author":
		result, err = srv.listWorksByAuthor(ctx, req)
	case "list_works_page_by_author":
		result, err = srv.listWorksPageByAuthor(ctx, req)
	case "get_record_format":
		result, err = srv.getRecordFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetWorks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_works", map[string]interface{}{"key": "w1", "works": duneJSON})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_works", map[string]interface{}{"key": "w1"})
	var got models.Works
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.Title != "Dune" || got.PressDate.String() != "1965-08-01" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateDuplicateAndMalformed(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_works", map[string]interface{}{"key": "w1", "works": duneJSON})

	r := callTool(t, srv, "create_works", map[string]interface{}{"key": "w1", "works": duneJSON})
	if !r.IsError || !strings.Contains(resultText(r), "Works w1 already exists") {
		t.Errorf("duplicate create = %q", resultText(r))
	}

	r = callTool(t, srv, "create_works", map[string]interface{}{"key": "w2", "works": `{"title":"x","isbn":"1"}`})
	if !r.IsError {
		t.Error("expected error for unknown field")
	}
}

func TestUpdateAndDeleteWorks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "update_works", map[string]interface{}{"key": "ghost", "works": duneJSON})
	if !r.IsError || !strings.Contains(resultText(r), "Works ghost does not exist") {
		t.Errorf("update missing = %q", resultText(r))
	}

	_ = callTool(t, srv, "create_works", map[string]interface{}{"key": "w1", "works": duneJSON})
	r = callTool(t, srv, "update_works", map[string]interface{}{"key": "w1", "works": `{"title":"Dune Messiah"}`})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}

	r = callTool(t, srv, "delete_works", map[string]interface{}{"key": "w1"})
	var prior models.Works
	_ = json.Unmarshal([]byte(resultText(r)), &prior)
	if prior != (models.Works{Title: "Dune Messiah"}) {
		t.Errorf("deleted = %+v", prior)
	}

	r = callTool(t, srv, "get_works", map[string]interface{}{"key": "w1"})
	if !r.IsError {
		t.Error("expected error for deleted record")
	}
}

func TestListWorks(t *testing.T) {
	srv := testServer(t)
	for _, key := range []string{"w2", "w1"} {
		_ = callTool(t, srv, "create_works", map[string]interface{}{"key": key, "works": duneJSON})
	}

	r := callTool(t, srv, "list_works_by_author", map[string]interface{}{"author": "Herbert"})
	var list models.WorksQueryResultList
	_ = json.Unmarshal([]byte(resultText(r)), &list)
	if len(list.Works) != 2 || list.Works[0].Key != "w1" {
		t.Errorf("list = %+v", list)
	}

	r = callTool(t, srv, "list_works_page_by_author", map[string]interface{}{"author": "Herbert", "pageSize": 1})
	var page models.WorksQueryPageResult
	_ = json.Unmarshal([]byte(resultText(r)), &page)
	if len(page.Works) != 1 || page.Bookmark == "" {
		t.Fatalf("page = %+v", page)
	}

	r = callTool(t, srv, "list_works_page_by_author", map[string]interface{}{
		"author": "Herbert", "pageSize": 1, "bookmark": page.Bookmark,
	})
	var next models.WorksQueryPageResult
	_ = json.Unmarshal([]byte(resultText(r)), &next)
	if len(next.Works) != 1 || next.Works[0].Key != "w2" {
		t.Errorf("next page = %+v", next)
	}

	r = callTool(t, srv, "list_works_page_by_author", map[string]interface{}{"author": "Herbert", "pageSize": 0})
	if !r.IsError {
		t.Error("expected error for zero page size")
	}
}

func TestRecordFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_record_format", map[string]interface{}{})
	if resultText(r) != RecordFormat {
		t.Error("record format mismatch")
	}

	contents, err := srv.readRecordFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != RecordFormatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
