package telephony

import (
	"encoding/xml"
	"fmt"
)

// AnswerDocument is the XML returned to the carrier when a call arrives.
// It optionally records the session, then opens the bidirectional media
// stream toward the websocket endpoint.
type AnswerDocument struct {
	XMLName xml.Name       `xml:"Response"`
	Record  *RecordElement `xml:",omitempty"`
	Stream  StreamElement
}

type RecordElement struct {
	XMLName       xml.Name `xml:"Record"`
	MaxLength     int      `xml:"maxLength,attr"`
	RecordSession bool     `xml:"recordSession,attr"`
	CallbackURL   string   `xml:"callbackUrl,attr,omitempty"`
}

type StreamElement struct {
	XMLName       xml.Name `xml:"Stream"`
	Bidirectional bool     `xml:"bidirectional,attr"`
	KeepCallAlive bool     `xml:"keepCallAlive,attr"`
	ContentType   string   `xml:"contentType,attr"`
	URL           string   `xml:",chardata"`
}

// NewAnswerDocument builds the answer for a call. recordCallbackURL is
// ignored when recording is off; empty leaves the attribute out.
func NewAnswerDocument(wsURL, contentType string, sampleRate int, recording bool, recordCallbackURL string) AnswerDocument {
	doc := AnswerDocument{
		Stream: StreamElement{
			Bidirectional: true,
			KeepCallAlive: true,
			ContentType:   fmt.Sprintf("%s;rate=%d", contentType, sampleRate),
			URL:           wsURL,
		},
	}
	if recording {
		doc.Record = &RecordElement{
			MaxLength:     86400,
			RecordSession: true,
			CallbackURL:   recordCallbackURL,
		}
	}
	return doc
}

// Render serializes the document with the XML header.
func (d AnswerDocument) Render() ([]byte, error) {
	body, err := xml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal answer document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
