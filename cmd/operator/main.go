package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/token"
)

// Signs an operator signature for one tenant. The resulting JWT goes into the
// tenant's client configuration and is presented as X-Operator-Signature on
// every request.
func main() {
	siteURL := flag.String("site-url", "", "tenant site URL (required)")
	redirectURL := flag.String("redirect-url", "", "OAuth return URL, defaults to the site URL")
	loginHook := flag.String("login-hook", "", "webhook URL invoked on login")
	signupHook := flag.String("signup-hook", "", "webhook URL invoked on signup")
	flag.Parse()

	if *siteURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	operatorToken := os.Getenv("OPERATOR_TOKEN")
	if len(operatorToken) < 32 {
		log.Fatal("OPERATOR_TOKEN must be set and at least 32 characters long")
	}

	sig := &token.OperatorSignature{
		SiteURL:     *siteURL,
		RedirectURL: *redirectURL,
	}

	hooks := map[string]string{}
	if *loginHook != "" {
		hooks[token.HookEventLogin] = *loginHook
	}
	if *signupHook != "" {
		hooks[token.HookEventSignup] = *signupHook
	}
	if len(hooks) > 0 {
		sig.FunctionHooks = hooks
	}

	// Operator signatures are always HS256 over the operator token; the
	// session JWT configuration is irrelevant here.
	manager := token.NewManager(&config.JWTConfig{}, operatorToken)

	signed, err := manager.SignOperatorSignature(sig)
	if err != nil {
		log.Fatalf("failed to sign operator signature: %v", err)
	}

	fmt.Println(signed)
}
