package guard

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Action is the outcome of classifying a request.
type Action int

const (
	// Deny is the zero value so that an unset decision refuses the request.
	Deny Action = iota
	Permit
	Authenticate
)

// String returns the action name used in logs and metrics.
func (a Action) String() string {
	switch a {
	case Deny:
		return "deny"
	case Permit:
		return "permit"
	case Authenticate:
		return "authenticate"
	default:
		return "unknown"
	}
}

// Classification labels a service path policy.
type Classification int

const (
	Public Classification = iota + 1
	Protected
)

// String returns "public" or "protected".
func (c Classification) String() string {
	switch c {
	case Public:
		return "public"
	case Protected:
		return "protected"
	default:
		return "unknown"
	}
}

// APIPrefix is prepended to service names to form their path patterns.
const APIPrefix = "/api/"

// BuiltinPublicPatterns are framework infrastructure paths that never
// require a token: locator discovery, static assets and API docs.
var BuiltinPublicPatterns = []string{
	"/api/**/webiarslocator/**",
	"/api/**/static/**",
	"/api/**/swagger",
	"/api/**/api-docs",
	"/api/docs/**",
	"/api/swagger/**",
}

// StaticResourcePatterns are common static asset locations outside /api.
// They are only public when Config.PermitStaticResources is set.
var StaticResourcePatterns = []string{
	"/css/**",
	"/js/**",
	"/images/**",
	"/webjars/**",
	"/favicon.ico",
}

// Rule names used in decisions.
const (
	RulePreflight    = "preflight"
	RuleDefaultDeny  = "default-deny"
	RuleNonCanonical = "non-canonical-path"
)

// Rule is one entry of the ordered rule list.
type Rule struct {
	Name    string
	Method  string // empty matches any method
	Pattern Pattern
	Action  Action
	Service string
}

func (r Rule) matches(urlPath, method string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	return r.Pattern.Match(urlPath)
}

// PathPolicy is the classification of one service's path space.
type PathPolicy struct {
	Service        string
	Pattern        string
	Classification Classification
}

// Decision is the result of Classify.
type Decision struct {
	Action Action

	// Service is set when a service rule matched.
	Service string

	// Rule names the matching rule.
	Rule string
}

// Config lists the backend services by authentication requirement.
type Config struct {
	// Authenticate names services whose paths require a verified token.
	Authenticate []string

	// DoNotAuthenticate names services whose paths are public. A name in
	// both lists is public, since public rules are evaluated first.
	DoNotAuthenticate []string

	// PermitStaticResources adds StaticResourcePatterns to the public set.
	PermitStaticResources bool
}

// Guard classifies requests. It is immutable and safe for concurrent use.
type Guard struct {
	rules    []Rule
	policies []PathPolicy
}

// New builds a Guard from config.
func New(config Config) (*Guard, error) {
	g := &Guard{}

	anyPath, err := CompilePattern("/**")
	if err != nil {
		return nil, err
	}
	g.rules = append(g.rules, Rule{
		Name:    RulePreflight,
		Method:  http.MethodOptions,
		Pattern: anyPath,
		Action:  Permit,
	})

	public := slices.Clone(BuiltinPublicPatterns)
	if config.PermitStaticResources {
		public = append(public, StaticResourcePatterns...)
	}
	for _, p := range public {
		pat, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		g.rules = append(g.rules, Rule{Name: "public:" + p, Pattern: pat, Action: Permit})
	}

	if err := g.addServices(config.DoNotAuthenticate, Permit, Public); err != nil {
		return nil, err
	}
	if err := g.addServices(config.Authenticate, Authenticate, Protected); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Guard) addServices(names []string, action Action, class Classification) error {
	for _, name := range names {
		if err := ValidateServiceName(name); err != nil {
			return err
		}
		raw := APIPrefix + name + "/**"
		pat, err := CompilePattern(raw)
		if err != nil {
			return err
		}
		g.rules = append(g.rules, Rule{
			Name:    "service:" + name,
			Pattern: pat,
			Action:  action,
			Service: name,
		})
		g.policies = append(g.policies, PathPolicy{Service: name, Pattern: raw, Classification: class})
	}
	return nil
}

// ValidateServiceName requires a single literal path segment.
func ValidateServiceName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidServiceName)
	case strings.ContainsAny(name, "/*?[]\\ \t\r\n"):
		return fmt.Errorf("%w: %q", ErrInvalidServiceName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidServiceName, name)
	}
	return nil
}

// Classify returns the decision for a request. It never fails: anything
// not matched by a rule is denied.
func (g *Guard) Classify(urlPath, method string) Decision {
	// rules[0] is the preflight rule; it applies to every path.
	if pre := g.rules[0]; pre.matches(urlPath, method) {
		return Decision{Action: pre.Action, Rule: pre.Name}
	}
	if hasDotSegment(urlPath) {
		return Decision{Action: Deny, Rule: RuleNonCanonical}
	}
	for _, r := range g.rules[1:] {
		if r.matches(urlPath, method) {
			return Decision{Action: r.Action, Service: r.Service, Rule: r.Name}
		}
	}
	return Decision{Action: Deny, Rule: RuleDefaultDeny}
}

// Check classifies a request and returns a *DenyError for Deny decisions.
func (g *Guard) Check(urlPath, method string) (Decision, error) {
	d := g.Classify(urlPath, method)
	if d.Action == Deny {
		return d, &DenyError{Method: method, Path: urlPath, Rule: d.Rule}
	}
	return d, nil
}

// Rules returns the rules in evaluation order.
func (g *Guard) Rules() []Rule {
	return slices.Clone(g.rules)
}

// Policies returns the per-service path policies in evaluation order.
func (g *Guard) Policies() []PathPolicy {
	return slices.Clone(g.policies)
}
