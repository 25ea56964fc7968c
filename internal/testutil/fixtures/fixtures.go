// Package fixtures builds request documents for tests.
package fixtures

import (
	"fmt"
	"strings"
)

type RootID struct {
	Issuer string
	Serial string
}

// Request describes a document. Empty strings omit the element.
type Request struct {
	SessionID    string
	TimeStamp    string
	Signature    bool
	Certificates []string
	RootIDs      []RootID
	MaxChains    string
	EMAIDs       []string
	// Envelopes repeats the request element; zero means one.
	Envelopes int
}

// HappyPath is the minimal valid request.
func HappyPath() Request {
	return Request{
		SessionID: "0102030405060708",
		TimeStamp: "1690000000",
		RootIDs:   []RootID{{Issuer: "CN=Test", Serial: "12345"}},
		MaxChains: "3",
	}
}

// WithRootIDs returns a request with n generated root entries.
func WithRootIDs(n int) Request {
	req := HappyPath()
	req.RootIDs = make([]RootID, n)
	for i := range req.RootIDs {
		req.RootIDs[i] = RootID{Issuer: fmt.Sprintf("CN=Root%d", i), Serial: fmt.Sprint(i + 1)}
	}
	return req
}

func (r Request) XML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<V2G_Message>\n  <Header>\n")
	if r.SessionID != "" {
		fmt.Fprintf(&b, "    <SessionID>%s</SessionID>\n", r.SessionID)
	}
	if r.TimeStamp != "" {
		fmt.Fprintf(&b, "    <TimeStamp>%s</TimeStamp>\n", r.TimeStamp)
	}
	if r.Signature {
		b.WriteString("    <Signature><SignatureValue>AA==</SignatureValue></Signature>\n")
	}
	b.WriteString("  </Header>\n  <Body>\n")

	envelopes := r.Envelopes
	if envelopes == 0 {
		envelopes = 1
	}
	for e := 0; e < envelopes; e++ {
		r.writeRequest(&b)
	}
	b.WriteString("  </Body>\n</V2G_Message>\n")
	return b.String()
}

func (r Request) writeRequest(b *strings.Builder) {
	b.WriteString("    <CertificateInstallationReq>\n")
	if len(r.Certificates) > 0 {
		b.WriteString("      <OEMProvisioningCertificateChain>\n")
		for _, c := range r.Certificates {
			fmt.Fprintf(b, "        <Certificate>%s</Certificate>\n", c)
		}
		b.WriteString("      </OEMProvisioningCertificateChain>\n")
	}
	if len(r.RootIDs) > 0 {
		b.WriteString("      <ListOfRootCertificateIDs>\n")
		for _, id := range r.RootIDs {
			b.WriteString("        <RootCertificateID>\n")
			if id.Issuer != "" {
				fmt.Fprintf(b, "          <X509IssuerName>%s</X509IssuerName>\n", id.Issuer)
			}
			if id.Serial != "" {
				fmt.Fprintf(b, "          <X509SerialNumber>%s</X509SerialNumber>\n", id.Serial)
			}
			b.WriteString("        </RootCertificateID>\n")
		}
		b.WriteString("      </ListOfRootCertificateIDs>\n")
	}
	if r.MaxChains != "" {
		fmt.Fprintf(b, "      <MaximumContractCertificateChains>%s</MaximumContractCertificateChains>\n", r.MaxChains)
	}
	if len(r.EMAIDs) > 0 {
		b.WriteString("      <PrioritizedEMAIDs>\n")
		for _, e := range r.EMAIDs {
			fmt.Fprintf(b, "        <EMAID>%s</EMAID>\n", e)
		}
		b.WriteString("      </PrioritizedEMAIDs>\n")
	}
	b.WriteString("    </CertificateInstallationReq>\n")
}
