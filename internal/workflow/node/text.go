package node

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis 截断标记
const Ellipsis = "..."

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TruncateAtWord 把 s 截断到 maxRunes 以内（含省略号）。
// 最后一个空格位于预算后三分之一时在词边界处截断。
func TruncateAtWord(s string, maxRunes int) (string, bool) {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s, false
	}
	budget := maxRunes - utf8.RuneCountInString(Ellipsis)
	if budget <= 0 {
		return TruncateByRunes(Ellipsis, maxRunes), true
	}

	cut := []rune(TruncateByRunes(s, budget))
	if idx := lastSpace(cut); idx > budget*2/3 {
		cut = cut[:idx]
	}
	out := strings.TrimRight(string(cut), " ,.;:-")
	return out + Ellipsis, true
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

// HasPhrase 大小写不敏感的子串判断
func HasPhrase(text, phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// ContainsTerm 大小写不敏感的整词（或整词组）匹配
func ContainsTerm(text, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	lower := strings.ToLower(text)
	for from := 0; from < len(lower); {
		i := strings.Index(lower[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if isBoundary(lower, start-1) && isBoundary(lower, end) {
			return true
		}
		from = start + 1
	}
	return false
}

// ContainsAnyTerm 返回第一个命中的词
func ContainsAnyTerm(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if ContainsTerm(text, term) {
			return term, true
		}
	}
	return "", false
}

func isBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	if r == utf8.RuneError {
		// i 落在多字节字符中间，向前回溯取完整字符
		r, _ = utf8.DecodeLastRuneInString(s[:i+1])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// AppendPhrase 以 ", " 追加短语，已存在时原样返回
func AppendPhrase(text, phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || HasPhrase(text, phrase) {
		return text
	}
	base := strings.TrimRight(strings.TrimSpace(text), " ,;")
	if base == "" {
		return phrase
	}
	return base + ", " + phrase
}

// AppendPhrases 依次追加，每个短语各自判重
func AppendPhrases(text string, phrases ...string) string {
	for _, p := range phrases {
		text = AppendPhrase(text, p)
	}
	return text
}

var (
	spaceRun  = regexp.MustCompile(`\s+`)
	commaRun  = regexp.MustCompile(`\s*,[\s,]*`)
	spaceDot  = regexp.MustCompile(`\s+\.`)
	edgeTrims = " ,;"

	// 删除词语后留下的连词："and and"、"and," 以及句首句尾的 and/or
	conjRun      = regexp.MustCompile(`(?i)\b(and|or)(?:\s*,?\s*(?:and|or)\b)+`)
	conjDangling = regexp.MustCompile(`(?i)\s+(?:and|or)\s*(,|\.|$)`)
	conjLeading  = regexp.MustCompile(`(?i)^\s*(?:and|or)\b\s*`)
)

// CollapseSeparators 合并编辑后残留的重复空白、分隔符与悬空连词
func CollapseSeparators(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = conjRun.ReplaceAllString(s, "${1}")
	s = conjDangling.ReplaceAllString(s, "${1}")
	s = conjLeading.ReplaceAllString(s, "")
	s = commaRun.ReplaceAllString(s, ", ")
	s = spaceDot.ReplaceAllString(s, ".")
	return strings.Trim(s, edgeTrims)
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}
