package report

import (
	"encoding/xml"
	"fmt"

	"docjudge/internal/engine"
)

// JUnit XML shapes. One testsuite per document, one testcase per rule
// outcome; the schema is the fixed one CI systems ingest.

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// RenderJUnit renders the summary as JUnit XML.
func RenderJUnit(s engine.Summary) (string, error) {
	out := junitTestSuites{}

	for _, r := range s.Results {
		suite := junitTestSuite{Name: r.Path, Tests: len(r.Outcomes)}
		for _, o := range r.Outcomes {
			tc := junitTestCase{Name: o.RuleID, ClassName: r.Path}
			if !o.Pass {
				suite.Failures++
				tc.Failure = &junitFailure{
					Message: fmt.Sprintf("%s:%d", r.Path, o.Line),
					Type:    string(o.Severity),
					Body:    o.Rationale,
				}
			}
			suite.Cases = append(suite.Cases, tc)
		}
		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Suites = append(out.Suites, suite)
	}

	data, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal junit report: %w", err)
	}
	return xml.Header + string(data) + "\n", nil
}
