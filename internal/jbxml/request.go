package jbxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Placeholders written into deferred documents.
const (
	SessionPlaceholder     = "{{SESSION_ID}}"
	LastUpdatedPlaceholder = "{{LAST_UPDATED}}"
)

const queryLayout = `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRequest>
        <SessionID>%s</SessionID>
        <MaterialQueryRq>
            <MaterialQueryFilter>
                <ID>%s</ID>
                <IncludeMaterialLocations>false</IncludeMaterialLocations>
                <IncludeCustomerParts>false</IncludeCustomerParts>
                <IncludePriceBreaks>false</IncludePriceBreaks>
            </MaterialQueryFilter>
        </MaterialQueryRq>
    </JBXMLRequest>
</JBXML>`

const updateLayout = `<?xml version="1.0" encoding="UTF-8"?>
<JBXML>
    <JBXMLRequest>
        <SessionID>%s</SessionID>
        <MaterialModRq>
            <MaterialMod>
                <ID>%s</ID>
                <LastUpdated>%s</LastUpdated>
            </MaterialMod>
            <AdjustOnHandQty>
                <ReasonRef ID="%s"/>
                <Quantity>%d</Quantity>
            </AdjustOnHandQty>
        </MaterialModRq>
    </JBXMLRequest>
</JBXML>`

// QueryRequest renders a MaterialQueryRq for itemID.
func QueryRequest(sessionID, itemID string) []byte {
	return []byte(fmt.Sprintf(queryLayout, escape(sessionID), escape(itemID)))
}

// UpdateRequest renders a MaterialModRq adding quantity to itemID's on-hand
// value, guarded by lastUpdated.
func UpdateRequest(sessionID, itemID, lastUpdated string, quantity int64, reasonID string) []byte {
	return []byte(fmt.Sprintf(updateLayout,
		escape(sessionID), escape(itemID), escape(lastUpdated), escape(reasonID), quantity))
}

// QueryTemplate renders a query with the session left as a placeholder.
func QueryTemplate(itemID string) []byte {
	return QueryRequest(SessionPlaceholder, itemID)
}

// UpdateTemplate renders an update with session and concurrency token left as
// placeholders.
func UpdateTemplate(itemID string, quantity int64, reasonID string) []byte {
	return UpdateRequest(SessionPlaceholder, itemID, LastUpdatedPlaceholder, quantity, reasonID)
}

// Fill substitutes the placeholders in a template with escaped values.
//
// Only whole <SessionID> and <LastUpdated> placeholder elements are replaced.
// Rendered identifiers are escaped and cannot contain markup, so placeholder
// text inside an ID or reason survives unchanged.
func Fill(template []byte, sessionID, lastUpdated string) []byte {
	r := strings.NewReplacer(
		placeholderElement("SessionID", SessionPlaceholder), element("SessionID", escape(sessionID)),
		placeholderElement("LastUpdated", LastUpdatedPlaceholder), element("LastUpdated", escape(lastUpdated)),
	)
	return []byte(r.Replace(string(template)))
}

func placeholderElement(name, placeholder string) string {
	return element(name, placeholder)
}

func element(name, content string) string {
	return "<" + name + ">" + content + "</" + name + ">"
}

// Renderer renders live documents for a fixed reason code.
type Renderer struct {
	ReasonID string
}

// QueryDocument renders the query for itemID in the given session.
func (r Renderer) QueryDocument(sessionID, itemID string) []byte {
	return QueryRequest(sessionID, itemID)
}

// UpdateDocument renders the conditional update for itemID.
func (r Renderer) UpdateDocument(sessionID, itemID, lastUpdated string, quantity int64) []byte {
	return UpdateRequest(sessionID, itemID, lastUpdated, quantity, r.ReasonID)
}

func escape(s string) string {
	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// RequestKind identifies the request shape.
type RequestKind string

const (
	KindQuery  RequestKind = "MaterialQueryRq"
	KindUpdate RequestKind = "MaterialModRq"
)

// Request is a parsed request document.
type Request struct {
	Kind        RequestKind
	SessionID   string
	ID          string
	LastUpdated string // update only
	ReasonID    string // update only
	Quantity    int64  // update only
}

type requestDoc struct {
	XMLName xml.Name `xml:"JBXML"`
	Body    struct {
		SessionAttr string `xml:"Session,attr"`
		SessionID   string `xml:"SessionID"`
		Query       *struct {
			ID string `xml:"MaterialQueryFilter>ID"`
		} `xml:"MaterialQueryRq"`
		Mod *struct {
			ID          string `xml:"MaterialMod>ID"`
			LastUpdated string `xml:"MaterialMod>LastUpdated"`
			Reason      struct {
				ID string `xml:"ID,attr"`
			} `xml:"AdjustOnHandQty>ReasonRef"`
			Quantity string `xml:"AdjustOnHandQty>Quantity"`
		} `xml:"MaterialModRq"`
	} `xml:"JBXMLRequest"`
}

// ParseRequest parses a rendered request document.
// It accepts the session either as a SessionID element or as a Session
// attribute on JBXMLRequest.
func ParseRequest(data []byte) (*Request, error) {
	var doc requestDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}

	req := &Request{SessionID: strings.TrimSpace(doc.Body.SessionID)}
	if req.SessionID == "" {
		req.SessionID = doc.Body.SessionAttr
	}

	switch {
	case doc.Body.Query != nil:
		req.Kind = KindQuery
		req.ID = strings.TrimSpace(doc.Body.Query.ID)
	case doc.Body.Mod != nil:
		req.Kind = KindUpdate
		req.ID = strings.TrimSpace(doc.Body.Mod.ID)
		req.LastUpdated = strings.TrimSpace(doc.Body.Mod.LastUpdated)
		req.ReasonID = doc.Body.Mod.Reason.ID
		qty, err := strconv.ParseInt(strings.TrimSpace(doc.Body.Mod.Quantity), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse request: quantity %q: %w", doc.Body.Mod.Quantity, err)
		}
		req.Quantity = qty
	default:
		return nil, fmt.Errorf("parse request: unknown request type")
	}

	if req.ID == "" {
		return nil, fmt.Errorf("parse request: %s without ID", req.Kind)
	}
	return req, nil
}
