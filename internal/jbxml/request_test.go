package jbxml

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestQueryRequest_Golden(t *testing.T) {
	g := newGoldie(t)
	g.Assert(t, "query_request", QueryRequest("S-123", "TEST-MAT-001"))
}

func TestUpdateRequest_Golden(t *testing.T) {
	g := newGoldie(t)
	g.Assert(t, "update_request", UpdateRequest("S-123", "TEST-MAT-001", "2025-06-15T10:30:00", -3, "ADJUST"))
}

func TestUpdateTemplate_Golden(t *testing.T) {
	g := newGoldie(t)
	g.Assert(t, "update_template", UpdateTemplate("TEST-MAT-002", -2, "CONSUMED"))
}

func TestFill_MatchesLiveRendering(t *testing.T) {
	template := UpdateTemplate("TEST-MAT-001", -3, "ADJUST")
	filled := Fill(template, "S-123", "2025-06-15T10:30:00")

	assert.Equal(t, string(UpdateRequest("S-123", "TEST-MAT-001", "2025-06-15T10:30:00", -3, "ADJUST")), string(filled))
	assert.Equal(t, string(QueryRequest("S-9", "A")), string(Fill(QueryTemplate("A"), "S-9", "")))
}

func TestRender_EscapesValues(t *testing.T) {
	doc := UpdateRequest("S&1", "A<B>&\"C\"", "t<1>", 5, `R"1`)

	assert.Contains(t, string(doc), "<SessionID>S&amp;1</SessionID>")
	assert.Contains(t, string(doc), "<ID>A&lt;B&gt;&amp;&#34;C&#34;</ID>")
	assert.Contains(t, string(doc), `<ReasonRef ID="R&#34;1"/>`)

	req, err := ParseRequest(doc)
	require.NoError(t, err)
	assert.Equal(t, "S&1", req.SessionID)
	assert.Equal(t, `A<B>&"C"`, req.ID)
	assert.Equal(t, "t<1>", req.LastUpdated)
	assert.Equal(t, `R"1`, req.ReasonID)
	assert.Equal(t, int64(5), req.Quantity)
}

func TestFill_EscapesValues(t *testing.T) {
	filled := Fill(UpdateTemplate("A", -1, ""), "S&1", "<t>")

	req, err := ParseRequest(filled)
	require.NoError(t, err)
	assert.Equal(t, "S&1", req.SessionID)
	assert.Equal(t, "<t>", req.LastUpdated)
}

func TestFill_OnlyReplacesPlaceholderElements(t *testing.T) {
	id := "X-" + SessionPlaceholder + LastUpdatedPlaceholder
	filled := Fill(UpdateTemplate(id, -2, SessionPlaceholder), "S-1", "tok")

	assert.Equal(t, string(UpdateRequest("S-1", id, "tok", -2, SessionPlaceholder)), string(filled))
	assert.Equal(t, string(QueryRequest("S-1", id)), string(Fill(QueryTemplate(id), "S-1", "")))
}

func TestParseRequest_Query(t *testing.T) {
	req, err := ParseRequest(QueryRequest("S-1", "MAT-7"))
	require.NoError(t, err)

	assert.Equal(t, KindQuery, req.Kind)
	assert.Equal(t, "S-1", req.SessionID)
	assert.Equal(t, "MAT-7", req.ID)
}

func TestParseRequest_UpdateRoundTrip(t *testing.T) {
	for _, qty := range []int64{-1, -3, -250, 4} {
		req, err := ParseRequest(UpdateRequest("S-1", "MAT-7", "tok", qty, "ADJUST"))
		require.NoError(t, err)

		assert.Equal(t, KindUpdate, req.Kind)
		assert.Equal(t, "MAT-7", req.ID)
		assert.Equal(t, "tok", req.LastUpdated)
		assert.Equal(t, "ADJUST", req.ReasonID)
		assert.Equal(t, qty, req.Quantity)
	}
}

func TestParseRequest_SessionAttribute(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRequest Session="S-attr">
        <MaterialQueryRq>
            <MaterialQueryFilter>
                <ID>MAT-1</ID>
            </MaterialQueryFilter>
        </MaterialQueryRq>
    </JBXMLRequest>
</JBXML>`

	req, err := ParseRequest([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "S-attr", req.SessionID)
	assert.Equal(t, "MAT-1", req.ID)
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not xml", "hello", "parse request"},
		{"unknown type", "<JBXML><JBXMLRequest><Other/></JBXMLRequest></JBXML>", "unknown request type"},
		{"missing id", "<JBXML><JBXMLRequest><MaterialQueryRq/></JBXMLRequest></JBXML>", "without ID"},
		{"bad quantity", "<JBXML><JBXMLRequest><MaterialModRq><MaterialMod><ID>A</ID></MaterialMod><AdjustOnHandQty><Quantity>x</Quantity></AdjustOnHandQty></MaterialModRq></JBXMLRequest></JBXML>", "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderer(t *testing.T) {
	r := Renderer{ReasonID: "ADJUST"}

	assert.Equal(t, QueryRequest("S", "A"), r.QueryDocument("S", "A"))
	assert.Equal(t, UpdateRequest("S", "A", "tok", -2, "ADJUST"), r.UpdateDocument("S", "A", "tok", -2))
}
