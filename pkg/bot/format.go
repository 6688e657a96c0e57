package bot

import (
	"fmt"

	"github.com/tzrikka/kenall/pkg/kenall"
	"github.com/tzrikka/kenall/pkg/postalcode"
	"github.com/tzrikka/kenall/pkg/slack"
)

// field is a single labeled value in a record's section.
type field struct {
	label string
	value *string
}

// Format converts a lookup result into Slack blocks: a header section,
// followed by a divider and a fields section for each record (1 + 2*N).
func Format(code postalcode.Code, result kenall.Result) []slack.Block {
	found, ok := result.(kenall.Found)
	if !ok {
		return []slack.Block{slack.NewSection(notFoundText(code))}
	}

	blocks := make([]slack.Block, 0, 1+2*len(found.Records))
	blocks = append(blocks, slack.NewSection(foundText(code, len(found.Records))))
	for _, a := range found.Records {
		blocks = append(blocks, slack.NewDivider(), addressSection(a))
	}
	return blocks
}

func foundText(code postalcode.Code, n int) string {
	return fmt.Sprintf(":postbox: *〒 %s* に対応する %d 件の郵便区画が見つかりました :postbox:", code, n)
}

func notFoundText(code postalcode.Code) string {
	return fmt.Sprintf(":postbox: *〒 %s* に対応する郵便区画は見つかりませんでした :postbox:", code)
}

func searchingText(code postalcode.Code) string {
	return fmt.Sprintf(":postbox: *〒 %s* に対応する郵便区画を検索中... :mag:", code)
}

// addressSection lists the present fields of a record in a fixed order.
// Slack rejects sections without text or fields, so an
// empty record is rendered as a placeholder text section.
func addressSection(a kenall.Address) *slack.SectionBlock {
	fs := []field{
		{"都道府県", a.Prefecture},
		{"市区町村", a.City},
		{"町域名", a.Town},
		{"小字・丁目", a.Koaza},
		{"ビル名", a.Building},
		{"ビルの階層", a.Floor},
	}
	if corp := a.Corporation; corp != nil {
		codeType := codeTypeLabel(corp.CodeType)
		fs = append(fs,
			field{"事業所", corp.Name},
			field{"小字名、丁目、番地等", corp.BlockLot},
			field{"取扱郵便局", corp.PostOffice},
			field{"個別番号の種別", &codeType},
		)
	}

	var texts []*slack.TextObject
	for _, f := range fs {
		if kenall.Present(f.value) {
			texts = append(texts, slack.Markdown(fmt.Sprintf("*%s:*\n%s", f.label, *f.value)))
		}
	}

	if len(texts) == 0 {
		return slack.NewSection("-")
	}
	return slack.NewFieldsSection(texts...)
}

func codeTypeLabel(t kenall.CodeType) string {
	if t == kenall.LargeOffice {
		return "大口事業所"
	}
	return "私書箱"
}
