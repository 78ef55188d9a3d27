package intent

import (
	"strings"

	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
)

// Kind 标识决策由脚本的哪一步产生
type Kind string

const (
	// KindClassified 消息确定了访客的用户类型
	KindClassified Kind = "classified"
	// KindRouted 消息由该用户类型的规则表应答
	KindRouted Kind = "routed"
	// KindClarify 类型仍未知且没有关键词命中
	KindClarify Kind = "clarify"
)

// Decision 单条用户消息经过脚本后的结果
type Decision struct {
	Kind     Kind          `json:"kind"`
	UserType chat.UserType `json:"userType"`
	Intent   string        `json:"intent"`
	Reply    string        `json:"reply"`
}

// Normalize 将文本转为小写以便关键词匹配
func Normalize(text string) string {
	return strings.ToLower(text)
}

// containsAny 要求传入已归一化的文本
func containsAny(normalized string, keywords []string) bool {
	for _, word := range keywords {
		if word == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

// Classify 根据单条消息判定用户类型，品牌关键词优先
func Classify(p playbook.Playbook, text string) (chat.UserType, bool) {
	normalized := Normalize(text)
	if containsAny(normalized, p.BrandKeywords) {
		return chat.UserTypeBrand, true
	}
	if containsAny(normalized, p.OrganizerKeywords) {
		return chat.UserTypeEventOrganizer, true
	}
	return chat.UserTypeUnknown, false
}

// Match 返回第一个关键词命中的规则，均未命中时返回默认规则
func Match(table playbook.Table, text string) playbook.Rule {
	normalized := Normalize(text)
	for _, rule := range table.Rules {
		if containsAny(normalized, rule.Keywords) {
			return rule
		}
	}
	return table.Default
}

// TableFor 返回已确定用户类型对应的规则表
func TableFor(p playbook.Playbook, userType chat.UserType) (playbook.Table, bool) {
	switch userType {
	case chat.UserTypeBrand:
		return p.Brand, true
	case chat.UserTypeEventOrganizer:
		return p.Organizer, true
	default:
		return playbook.Table{}, false
	}
}

// Route 为已确定类型的用户生成回复
func Route(p playbook.Playbook, userType chat.UserType, text string) Decision {
	table, ok := TableFor(p, userType)
	if !ok {
		return Decision{Kind: KindClarify, UserType: chat.UserTypeUnknown, Intent: "clarify", Reply: p.Clarify}
	}
	rule := Match(table, text)
	return Decision{Kind: KindRouted, UserType: userType, Intent: rule.Intent, Reply: rule.Reply}
}

// Decide 按当前用户类型处理一条用户消息。
// 类型未知时消息只用于分类，不进入规则表。
func Decide(p playbook.Playbook, current chat.UserType, text string) Decision {
	if current != chat.UserTypeUnknown && current != "" {
		return Route(p, current, text)
	}

	userType, ok := Classify(p, text)
	if !ok {
		return Decision{Kind: KindClarify, UserType: chat.UserTypeUnknown, Intent: "clarify", Reply: p.Clarify}
	}

	reply := p.BrandWelcome
	if userType == chat.UserTypeEventOrganizer {
		reply = p.OrganizerWelcome
	}
	return Decision{Kind: KindClassified, UserType: userType, Intent: "welcome", Reply: reply}
}
