// Package jbxml renders and parses the JBXML documents exchanged with the
// JobBOSS request processor.
//
// Two request shapes are produced:
//   - MaterialQueryRq: read-only lookup of one material by ID.
//   - MaterialModRq: adds a signed quantity to the material's on-hand value,
//     gated on the LastUpdated concurrency token.
//
// Rendering is byte-exact: element names, indentation and the XML
// declaration must match what the request processor expects, so documents are
// produced from fixed layouts rather than through encoding/xml marshaling.
// Interpolated values are XML-escaped.
//
// Responses are scanned for the first StatusCode, StatusMessage,
// ErrorMessage, ID, OnHand and LastUpdated elements regardless of nesting,
// since error answers carry the status directly under JBXMLRespond while
// success answers nest it in the *Rs element.
//
// Templates rendered for the two-phase workflow carry SessionPlaceholder and
// LastUpdatedPlaceholder; Fill substitutes the values known only at
// execution time.
package jbxml
