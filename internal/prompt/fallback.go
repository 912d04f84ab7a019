package prompt

import (
	"fmt"

	"github.com/kapu/reader-sim-go/internal/domain"
)

// FallbackVariants builds one deterministic variant per angle from the
// original title, used when the model's answer is unusable.
func FallbackVariants(title string, lang domain.Language) []domain.VariantTitle {
	if lang == domain.LanguageChinese {
		return []domain.VariantTitle{
			{Title: fmt.Sprintf("%s：触动人心的真实故事", title), Angle: "情感角度", Focus: "唤起读者情感共鸣"},
			{Title: fmt.Sprintf("%s：一步步上手的实用指南", title), Angle: "实用角度", Focus: "强调实用价值和可操作性"},
			{Title: fmt.Sprintf("关于%s，你可能不知道的秘密", title), Angle: "好奇角度", Focus: "激发读者好奇心"},
			{Title: fmt.Sprintf("专家解读：%s", title), Angle: "权威角度", Focus: "体现专业性和权威感"},
			{Title: fmt.Sprintf("我与%s的故事", title), Angle: "故事角度", Focus: "使用故事讲述吸引读者"},
		}
	}
	return []domain.VariantTitle{
		{Title: fmt.Sprintf("Why %s Matters More Than You Think", title), Angle: "Emotional", Focus: "Evoke reader emotional resonance"},
		{Title: fmt.Sprintf("A Practical Guide to %s", title), Angle: "Practical", Focus: "Emphasize practical value and operability"},
		{Title: fmt.Sprintf("What Nobody Tells You About %s", title), Angle: "Curiosity", Focus: "Spark reader curiosity"},
		{Title: fmt.Sprintf("The Expert's Take on %s", title), Angle: "Authority", Focus: "Reflect professionalism and authority"},
		{Title: fmt.Sprintf("How %s Changed Everything: A True Story", title), Angle: "Story", Focus: "Use storytelling to attract readers"},
	}
}

// FallbackComment is the boilerplate comment of a synthesized review.
func FallbackComment(p domain.Persona, title string, lang domain.Language) string {
	if lang == domain.LanguageChinese {
		return fmt.Sprintf("作为%s，我认为这个标题%s有一定的吸引力，但还有改进空间。", p.Name, title)
	}
	return fmt.Sprintf("As a %s, I think the title \"%s\" has some appeal, but there is still room for improvement.", p.Name, title)
}

func DefaultTags(lang domain.Language) []string {
	if lang == domain.LanguageChinese {
		return []string{"实用性强", "可执行"}
	}
	return []string{"Practical", "Actionable"}
}

func DefaultSuggestions(lang domain.Language) []string {
	if lang == domain.LanguageChinese {
		return []string{"优化表达", "增强吸引力"}
	}
	return []string{"Refine the wording", "Increase the appeal"}
}

// Sufficiency reasons used when the verdict could not be obtained.
func SufficiencyFailureReason(lang domain.Language) string {
	if lang == domain.LanguageChinese {
		return "检查失败，默认信息充足"
	}
	return "Check failed, default to sufficient"
}
