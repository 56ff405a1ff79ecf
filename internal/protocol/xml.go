package protocol

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/powerdisco/internal/model"
)

// ProductInfoPath is the product descriptor of network management cards.
const ProductInfoPath = "/product.xml"

// legacyXMLProtocol is answered by cards whose XML dialect the netxml driver
// cannot read.
const legacyXMLProtocol = "XML.V4"

// supportedCards are the product names accepted by the netxml driver.
var supportedCards = []string{
	"Network Management Card",
	"HPE UPS Network Module",
}

var (
	errUnsupportedCard = errors.New("unsupported card type")
	errLegacyXML       = errors.New("unsupported " + legacyXMLProtocol)
	errNoSummary       = errors.New("product descriptor has no summary url")
)

// productInfo is the root element of product.xml.
type productInfo struct {
	XMLName  xml.Name `xml:"PRODUCT_INFO"`
	Name     string   `xml:"name,attr"`
	Protocol string   `xml:"protocol,attr"`
	Summary  struct {
		XMLSummary struct {
			URL string `xml:"url,attr"`
		} `xml:"XML_SUMMARY"`
	} `xml:"SUMMARY"`
}

// anyDocument accepts any well-formed document with a root element.
type anyDocument struct {
	XMLName xml.Name
}

// XMLPDCScanner detects the XML protocol of network management cards.
type XMLPDCScanner struct {
	fetch *httpFetcher
}

// NewXMLPDCScanner creates a scanner for the nut_xml_pdc protocol.
func NewXMLPDCScanner(opts ...HTTPScannerOption) *XMLPDCScanner {
	return &XMLPDCScanner{fetch: newHTTPFetcher(opts...)}
}

// Protocol returns the protocol name.
func (s *XMLPDCScanner) Protocol() string {
	return model.ProtocolXMLPDC
}

// DefaultPort returns the default HTTP port.
func (s *XMLPDCScanner) DefaultPort() uint16 {
	return 80
}

// Scan fetches product.xml, checks the card and its XML dialect, then fetches
// the summary document it references. Both documents must parse.
func (s *XMLPDCScanner) Scan(ctx context.Context, address string, port uint16) (model.Availability, error) {
	base := baseURL("http", address, port)

	body, err := s.fetch.get(ctx, base+ProductInfoPath)
	if err != nil {
		return model.AvailabilityNo, err
	}

	var prod productInfo
	if err := decodeXML(body, &prod); err != nil {
		return model.AvailabilityNo, fmt.Errorf("failed to parse %s: %w", ProductInfoPath, err)
	}

	if !slices.Contains(supportedCards, prod.Name) {
		return model.AvailabilityNo, errUnsupportedCard
	}
	if prod.Protocol == legacyXMLProtocol {
		return model.AvailabilityNo, errLegacyXML
	}

	summary, err := resolveSummary(base, prod.Summary.XMLSummary.URL)
	if err != nil {
		return model.AvailabilityNo, err
	}

	body, err = s.fetch.get(ctx, summary)
	if err != nil {
		return model.AvailabilityNo, err
	}
	var props anyDocument
	if err := decodeXML(body, &props); err != nil {
		return model.AvailabilityNo, fmt.Errorf("failed to parse summary: %w", err)
	}

	return model.AvailabilityYes, nil
}

// resolveSummary resolves the summary reference against the card base URL.
// Cards answer either "/upsprop.xml" or "upsprop.xml".
func resolveSummary(base, ref string) (string, error) {
	if ref == "" {
		return "", errNoSummary
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid summary url %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// decodeXML decodes a card document. Cards declare ISO-8859-1 or UTF-8.
func decodeXML(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(v)
}
