package pipeline

import (
	"fmt"

	"github.com/kapu/reader-sim-go/internal/domain"
)

func describe(stage domain.Stage, lang domain.Language, title, persona string) string {
	if lang == domain.LanguageChinese {
		switch stage {
		case domain.StageCheckingInfo:
			return "正在检查信息充足性..."
		case domain.StageEnrichingInfo:
			return "正在补充背景信息..."
		case domain.StageGeneratingTitles:
			return "正在生成多角度标题..."
		case domain.StageGeneratingReview:
			return fmt.Sprintf("正在以%s的视角点评「%s」", persona, title)
		case domain.StageCompleted:
			return "分析完成"
		default:
			return ""
		}
	}

	switch stage {
	case domain.StageCheckingInfo:
		return "Checking information sufficiency..."
	case domain.StageEnrichingInfo:
		return "Enriching background information..."
	case domain.StageGeneratingTitles:
		return "Generating title variants..."
	case domain.StageGeneratingReview:
		return fmt.Sprintf("Reviewing \"%s\" as %s", title, persona)
	case domain.StageCompleted:
		return "Analysis complete"
	default:
		return ""
	}
}
