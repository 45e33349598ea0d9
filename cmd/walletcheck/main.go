package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wnt/mevx/internal/credential"
	"github.com/wnt/mevx/internal/logger"
	"github.com/wnt/mevx/internal/solana"
)

func main() {
	// Parse command line arguments
	var (
		method     string
		secret     string
		derivation string
		rpcURL     string
		balance    bool
	)
	flag.StringVar(&method, "method", string(credential.MethodPrivateKey), "Credential type: private-key or recovery-phrase")
	flag.StringVar(&secret, "secret", "-", "Private key or recovery phrase, - reads one line from stdin")
	flag.StringVar(&derivation, "derivation", "bip44", "Recovery phrase derivation: bip44 or legacy-sha256")
	flag.StringVar(&rpcURL, "rpc", "", "Solana RPC URL (defaults to SOLANA_RPC_URL)")
	flag.BoolVar(&balance, "balance", false, "Fetch the on-chain balance and activity of the decoded wallet")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	if secret == "-" {
		fmt.Fprint(os.Stderr, "Enter secret: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("❌ Failed to read secret: %v", err)
		}
		secret = line
	}

	d, err := credential.ParseDerivation(derivation)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	result, err := credential.NewDecoder(credential.WithDerivation(d)).Decode(secret, credential.Method(method))
	if err != nil {
		fmt.Println("❌ Could not decode credential:")
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("💳 Wallet:  %s\n", result.Address())
	fmt.Printf("🔑 Method:  %s\n", result.Method)
	fmt.Printf("📄 Format:  %s\n", result.Format)
	if result.Method == credential.MethodRecoveryPhrase {
		fmt.Printf("🧭 Derivation: %s\n", d)
	}

	if !balance {
		return
	}

	if rpcURL == "" {
		rpcURL = os.Getenv("SOLANA_RPC_URL")
	}
	client, err := solana.NewClient(rpcURL, logger.New(os.Getenv("LOG_LEVEL")))
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sol, err := client.GetBalance(ctx, result.Address())
	if err != nil {
		log.Fatalf("❌ Failed to fetch balance: %v", err)
	}
	fmt.Printf("💰 Balance: %s SOL\n", sol.StringFixed(9))

	active, err := client.CheckWalletActivity(ctx, result.Address())
	if err != nil {
		log.Printf("⚠️  Failed to check wallet activity: %v", err)
	} else {
		fmt.Printf("📈 Has transactions: %t\n", active)
	}
	fmt.Println(strings.Repeat("=", 60))
}
