package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/chatrelay/pkg/config"
)

// Redactor strips credentials from log output: model API keys, bearer and
// identity tokens, AWS keys and token query parameters.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey       = "api_key"
	PatternBearerToken  = "bearer_token"
	PatternJWT          = "jwt"
	PatternAWSAccessKey = "aws_access_key"
	PatternAWSSecret    = "aws_secret"
	PatternTokenParam   = "token_param"
	PatternPassword     = "password"
)

// Order matters: the bearer pattern runs before the JWT pattern so a bearer
// JWT collapses to a single marker.
var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternAPIKey, `sk-(?:ant-)?[A-Za-z0-9_\-]{8,}`, "sk-***"},
	{PatternBearerToken, `Bearer\s+[A-Za-z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternJWT, `eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`, "***.jwt"},
	{PatternAWSAccessKey, `\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`, "AKIA***"},
	{PatternAWSSecret, `(?i)(aws_secret_access_key|secret_access_key|aws_session_token)(\s*[:=]\s*)[^\s&"]+`, "$1$2***"},
	{PatternTokenParam, `([?&](?:token|id_token|access_token)=)[^&\s"]+`, "$1***"},
	{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
}

var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "credentials",
	"private_key", "secret_access_key", "session_token",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// custom ones. Custom patterns that do not compile are skipped.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr redacts one slog attribute. Values under sensitive keys are
// masked whole; other string values go through the patterns. Groups are
// walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey reports whether a key name indicates a credential. A
// sensitive word matches as the whole key or as its first or last
// underscore-separated part, so "id_token" matches and "input_tokens" does
// not.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s || strings.HasSuffix(lower, "_"+s) || strings.HasPrefix(lower, s+"_") {
			return true
		}
	}
	return false
}

// maskValue keeps a four character prefix of long values.
func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "***"
	}
	return v[:4] + "***"
}
