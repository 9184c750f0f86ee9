// Package main runs end-to-end scenarios against a running chat API.
//
// Scenarios cover:
//   - Knowledge base answers
//   - Unanswered questions reaching the admin review endpoint
//   - The full booking flow
//   - Cancelling at both confirmation steps
//   - Email re-prompting
//
// Usage:
//
//	API_BASE_URL=... go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=... go run scripts/e2e/run_e2e.go happy-path   # runs one
//
// Set ADMIN_JWT_SECRET to include the unanswered-review scenario. Every
// scenario uses its own X-Forwarded-For address so sessions do not collide;
// the API must run with TRUST_PROXY_HEADERS=true for that to take effect.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

var (
	apiBase   string
	jwtSecret string
	client    = &http.Client{Timeout: 15 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
	ip     string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (t *T) say(text string) (string, bool) {
	body, _ := json.Marshal(map[string]string{"message": text})
	req, _ := http.NewRequest(http.MethodPost, apiBase+"/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", t.ip)

	resp, err := client.Do(req)
	if err != nil {
		t.fatalf("send %q: %v", text, err)
		return "", false
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.fatalf("send %q returned %d: %s", text, resp.StatusCode, string(raw))
		return "", false
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.fatalf("decode reply: %v", err)
		return "", false
	}
	fmt.Printf("    > %s\n    < %s\n", text, strings.ReplaceAll(out.Reply, "\n", " | "))
	return out.Reply, true
}

func adminToken() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "e2e",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioFAQ(t *T) {
	reply, ok := t.say("What are your opening hours?")
	if !ok {
		return
	}
	t.check("opening hours answered", strings.Contains(reply, "Monday"))
}

func scenarioHappyPath(t *T) {
	steps := []struct {
		msg  string
		want string
	}{
		{"I would like to book an appointment", "yes"},
		{"yes", "full name"},
		{"jane doe", "email"},
		{"Jane@Example.com", "treatment"},
		{"massage", "DD.MM.YYYY"},
		{"15.10.2030 14:00", "Jane Doe"},
	}
	for _, step := range steps {
		reply, ok := t.say(step.msg)
		if !ok {
			return
		}
		t.check(fmt.Sprintf("reply to %q mentions %q", step.msg, step.want), strings.Contains(reply, step.want))
	}
	reply, ok := t.say("yes")
	if !ok {
		return
	}
	t.check("request dispatched", strings.Contains(reply, "has been sent") || strings.Contains(reply, "call us"))

	reply, ok = t.say("yes")
	if !ok {
		return
	}
	t.check("session reset after dispatch", !strings.Contains(reply, "has been sent"))
}

func scenarioCancelEarly(t *T) {
	if _, ok := t.say("book"); !ok {
		return
	}
	reply, ok := t.say("no")
	if !ok {
		return
	}
	t.check("cancelled at start", strings.Contains(reply, "cancelled"))
}

func scenarioCancelAtSummary(t *T) {
	for _, msg := range []string{"reservation please", "yes", "Max Muster", "max@example.org", "Facial", "01.02.2031 09:30"} {
		if _, ok := t.say(msg); !ok {
			return
		}
	}
	reply, ok := t.say("no")
	if !ok {
		return
	}
	t.check("cancelled at summary", strings.Contains(reply, "cancelled"))
}

func scenarioInvalidEmail(t *T) {
	for _, msg := range []string{"appointment", "yes", "Ann Lee"} {
		if _, ok := t.say(msg); !ok {
			return
		}
	}
	reply, ok := t.say("not-an-email")
	if !ok {
		return
	}
	t.check("invalid email re-prompted", strings.Contains(reply, "valid email"))
	reply, ok = t.say("ann@example.com")
	if !ok {
		return
	}
	t.check("valid email accepted", strings.Contains(reply, "treatment"))
}

func scenarioUnansweredReview(t *T) {
	if jwtSecret == "" {
		fmt.Println("    SKIP: ADMIN_JWT_SECRET not set")
		return
	}
	question := fmt.Sprintf("Do you sell gift vouchers shaped like dragons %d?", time.Now().Unix())
	if _, ok := t.say(question); !ok {
		return
	}

	token, err := adminToken()
	if err != nil {
		t.fatalf("sign token: %v", err)
		return
	}
	req, _ := http.NewRequest(http.MethodGet, apiBase+"/admin/unanswered?limit=20", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.fatalf("list unanswered: %v", err)
		return
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusServiceUnavailable {
		fmt.Println("    SKIP: unanswered storage not configured")
		return
	}
	t.check("admin list succeeded", resp.StatusCode == http.StatusOK)
	t.check("question recorded", strings.Contains(string(raw), "dragons"))
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		apiBase = "http://localhost:8080"
	}
	jwtSecret = os.Getenv("ADMIN_JWT_SECRET")

	scenarios := []scenario{
		{"faq", scenarioFAQ},
		{"happy-path", scenarioHappyPath},
		{"cancel-early", scenarioCancelEarly},
		{"cancel-at-summary", scenarioCancelAtSummary},
		{"invalid-email", scenarioInvalidEmail},
		{"unanswered-review", scenarioUnansweredReview},
	}

	only := ""
	if len(os.Args) > 1 {
		only = os.Args[1]
	}

	totalPassed, totalFailed := 0, 0
	run := time.Now().Unix() % 200
	for i, sc := range scenarios {
		if only != "" && sc.Name != only {
			continue
		}
		fmt.Printf("\n=== %s ===\n", sc.Name)
		t := &T{name: sc.Name, ip: fmt.Sprintf("198.51.100.%d", (int(run)+i)%250+1)}
		sc.Fn(t)
		totalPassed += t.passed
		totalFailed += t.failed
	}

	fmt.Printf("\n%d passed, %d failed\n", totalPassed, totalFailed)
	if totalFailed > 0 {
		os.Exit(1)
	}
}
