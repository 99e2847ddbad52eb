// Package guardrail validates chat questions before any network call is made.
// Validation is a pure function: stages run in a fixed order and the first
// failing stage short-circuits with its reason.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

type Stage string

const (
	StageLength           Stage = "length"
	StageProfanityExact   Stage = "profanity_exact"
	StageProfanityPattern Stage = "profanity_pattern"
	StageSpamPattern      Stage = "spam_pattern"
	StageURLSpam          Stage = "url_spam"
)

const (
	MinQuestionLen = 2
	MaxQuestionLen = 500

	maxRepeatRun = 9  // a run of 10 identical runes is spam
	maxURLCount  = 3
)

type Result struct {
	Valid  bool
	Stage  Stage
	Reason string
}

// blockedWords is a curated, case-insensitive substring block-list.
// Korean entries cover the blog's primary audience; English covers the rest.
var blockedWords = []string{
	// Korean
	"시발", "씨발", "씨팔", "병신", "개새끼", "개새기", "지랄", "염병",
	"썅", "좆", "미친놈", "미친년", "꺼져라",
	// English
	"fuck", "shit", "bitch", "asshole", "bastard", "dickhead",
	"motherfucker", "cunt",
}

// profanityPatterns catches character-substitution and spacing variants that
// the exact list misses (e.g. "s1bal", "ㅅㅂ", "f u c k").
var profanityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)f[\s._*-]*u[\s._*-]*c[\s._*-]*k`),
	regexp.MustCompile(`(?i)s[\s._*-]*h[\s._*-]*i[\s._*-]*t`),
	regexp.MustCompile(`(?i)b[\s._*-]*i[\s._*-]*t[\s._*-]*c[\s._*-]*h`),
	regexp.MustCompile(`[ㅅㅆ][\s._*-]*[1l!|iㅂ]발`),
	regexp.MustCompile(`시[\s._*0-9-]+발`),
	regexp.MustCompile(`ㅅㅂ|ㅄ|ㅂㅅ`),
	regexp.MustCompile(`(?i)병[\s._*-]*신`),
}

// expressiveRunes are characters whose long runs indicate keyboard mashing
// rather than a question (laughing/crying jamo, punctuation).
var expressiveRunes = map[rune]bool{
	'ㅋ': true, 'ㅎ': true, 'ㅠ': true, 'ㅜ': true,
	'!': true, '?': true, '~': true, '.': true, ',': true,
}

var urlRe = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)

// Validate runs the full stage pipeline over a question.
func Validate(question string) Result {
	trimmed := strings.TrimSpace(question)

	if r := checkLength(trimmed); !r.Valid {
		return r
	}
	if r := checkProfanityExact(trimmed); !r.Valid {
		return r
	}
	if r := checkProfanityPattern(trimmed); !r.Valid {
		return r
	}
	if r := checkSpamPattern(trimmed); !r.Valid {
		return r
	}
	if r := checkURLSpam(trimmed); !r.Valid {
		return r
	}

	return Result{Valid: true}
}

func checkLength(s string) Result {
	n := len([]rune(s))
	if n < MinQuestionLen {
		return fail(StageLength, fmt.Sprintf("question too short (min %d characters)", MinQuestionLen))
	}
	if n > MaxQuestionLen {
		return fail(StageLength, fmt.Sprintf("question too long (max %d characters)", MaxQuestionLen))
	}
	return Result{Valid: true}
}

func checkProfanityExact(s string) Result {
	lower := strings.ToLower(s)
	for _, w := range blockedWords {
		if strings.Contains(lower, w) {
			return fail(StageProfanityExact, "question contains blocked language")
		}
	}
	return Result{Valid: true}
}

func checkProfanityPattern(s string) Result {
	for _, re := range profanityPatterns {
		if re.MatchString(s) {
			return fail(StageProfanityPattern, "question contains blocked language")
		}
	}
	return Result{Valid: true}
}

func checkSpamPattern(s string) Result {
	// RE2 has no backreferences, so identical-rune runs are counted by hand.
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > maxRepeatRun {
			if expressiveRunes[r] {
				return fail(StageSpamPattern, "question looks like repeated filler")
			}
			return fail(StageSpamPattern, "question contains excessive character repetition")
		}
	}
	return Result{Valid: true}
}

func checkURLSpam(s string) Result {
	if len(urlRe.FindAllString(s, maxURLCount+1)) > maxURLCount {
		return fail(StageURLSpam, fmt.Sprintf("question contains more than %d links", maxURLCount))
	}
	return Result{Valid: true}
}

func fail(stage Stage, reason string) Result {
	return Result{Valid: false, Stage: stage, Reason: reason}
}
