package report_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gnames/epidump/internal/ent/report"
)

var _ = Describe("Report", func() {
	rep := report.Report{
		{Dataset: "mpox", File: "a.csv", Status: report.Success, Rows: 1200},
		{Dataset: "mpox", File: "b.csv", Status: report.Warning, Message: "no rows after cleaning"},
		{Dataset: "ebola", Status: report.Error, Error: "unknown dataset family 'ebola'"},
		{Dataset: "covid19", File: "c.csv", Status: report.Success, Rows: 3},
	}

	It("counts results by status", func() {
		Expect(rep.Count(report.Success)).To(Equal(2))
		Expect(rep.Count(report.Warning)).To(Equal(1))
		Expect(rep.Count(report.Error)).To(Equal(1))
		Expect(rep.Rows()).To(Equal(1203))
	})

	It("describes a result in one line", func() {
		Expect(rep[0].String()).To(Equal("success mpox/a.csv: 1,200 rows"))
		Expect(rep[2].String()).To(ContainSubstring("ebola: unknown dataset family"))
	})

	It("encodes to JSON omitting empty fields", func() {
		out, err := rep.JSON(false)
		Expect(err).ToNot(HaveOccurred())
		var res []map[string]any
		Expect(json.Unmarshal(out, &res)).To(Succeed())
		Expect(res).To(HaveLen(4))
		Expect(res[0]).To(HaveKeyWithValue("rows", 1200.0))
		Expect(res[0]).ToNot(HaveKey("error"))
		Expect(res[2]).ToNot(HaveKey("file"))
		Expect(res[2]).To(HaveKeyWithValue("status", "error"))
	})
})
