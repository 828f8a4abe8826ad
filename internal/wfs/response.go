package wfs

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/joeblew999/plat-wfs/internal/edit"
)

// Exception is one entry of an exception report.
type Exception struct {
	Code    string
	Locator string
	Text    string
}

// ExceptionError is returned when the service rejects a request.
type ExceptionError struct {
	Exceptions []Exception
}

func (e *ExceptionError) Error() string {
	if len(e.Exceptions) == 0 {
		return "wfs: exception report"
	}
	parts := make([]string, 0, len(e.Exceptions))
	for _, ex := range e.Exceptions {
		s := ex.Text
		if ex.Code != "" {
			s = ex.Code + ": " + s
		}
		if ex.Locator != "" {
			s += " (" + ex.Locator + ")"
		}
		parts = append(parts, s)
	}
	return "wfs: " + strings.Join(parts, "; ")
}

type transactionResponse struct {
	Summary struct {
		Inserted int `xml:"totalInserted"`
		Updated  int `xml:"totalUpdated"`
		Deleted  int `xml:"totalDeleted"`
	} `xml:"TransactionSummary"`
	InsertResults []struct {
		FeatureIDs []struct {
			FID string `xml:"fid,attr"`
		} `xml:"FeatureId"`
	} `xml:"InsertResults>Feature"`
}

type owsExceptionReport struct {
	Exceptions []struct {
		Code    string   `xml:"exceptionCode,attr"`
		Locator string   `xml:"locator,attr"`
		Text    []string `xml:"ExceptionText"`
	} `xml:"Exception"`
}

type serviceExceptionReport struct {
	Exceptions []struct {
		Code    string `xml:"code,attr"`
		Locator string `xml:"locator,attr"`
		Text    string `xml:",chardata"`
	} `xml:"ServiceException"`
}

// DecodeTransactionResponse reads a wfs:TransactionResponse. Exception
// reports come back as *ExceptionError.
func DecodeTransactionResponse(r io.Reader) (*edit.Result, error) {
	dec := xml.NewDecoder(r)
	start, err := rootElement(dec)
	if err != nil {
		return nil, err
	}

	switch start.Name.Local {
	case "TransactionResponse":
		var resp transactionResponse
		if err := dec.DecodeElement(&resp, &start); err != nil {
			return nil, fmt.Errorf("%w: decoding transaction response: %v", ErrResponse, err)
		}
		res := &edit.Result{
			Inserted: resp.Summary.Inserted,
			Updated:  resp.Summary.Updated,
			Deleted:  resp.Summary.Deleted,
		}
		for _, f := range resp.InsertResults {
			for _, id := range f.FeatureIDs {
				res.InsertedIDs = append(res.InsertedIDs, id.FID)
			}
		}
		return res, nil

	case "ExceptionReport", "ServiceExceptionReport":
		return nil, decodeException(dec, start)

	default:
		return nil, fmt.Errorf("%w: unexpected response element %q", ErrResponse, start.Name.Local)
	}
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, fmt.Errorf("%w: empty response", ErrResponse)
			}
			return xml.StartElement{}, fmt.Errorf("%w: reading response: %v", ErrResponse, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func decodeException(dec *xml.Decoder, start xml.StartElement) error {
	exc := &ExceptionError{}
	if start.Name.Local == "ServiceExceptionReport" {
		var rep serviceExceptionReport
		if err := dec.DecodeElement(&rep, &start); err != nil {
			return fmt.Errorf("%w: decoding exception report: %v", ErrResponse, err)
		}
		for _, e := range rep.Exceptions {
			exc.Exceptions = append(exc.Exceptions, Exception{
				Code: e.Code, Locator: e.Locator, Text: strings.TrimSpace(e.Text),
			})
		}
		return exc
	}

	var rep owsExceptionReport
	if err := dec.DecodeElement(&rep, &start); err != nil {
		return fmt.Errorf("%w: decoding exception report: %v", ErrResponse, err)
	}
	for _, e := range rep.Exceptions {
		text := make([]string, 0, len(e.Text))
		for _, t := range e.Text {
			text = append(text, strings.TrimSpace(t))
		}
		exc.Exceptions = append(exc.Exceptions, Exception{
			Code: e.Code, Locator: e.Locator, Text: strings.Join(text, " "),
		})
	}
	return exc
}
