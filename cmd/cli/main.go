package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ledgerapi-cli",
		Short: "LedgerAPI CLI tool",
		Long:  `A command line interface for interacting with the LedgerAPI service.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the LedgerAPI service")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	var ledgerName string

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ledger",
		Run: func(cmd *cobra.Command, args []string) {
			createLedger(ledgerName)
		},
	}
	createCmd.Flags().StringVar(&ledgerName, "name", "", "Ledger name")
	createCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ledgers",
		Run: func(cmd *cobra.Command, args []string) {
			get("/v1/ledgers")
		},
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency <ledger-id>",
		Short: "Reconcile a ledger against the balance engine",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			checkConsistency(args[0])
		},
	}

	ledgerCmd.AddCommand(createCmd, listCmd, consistencyCmd)
	rootCmd.AddCommand(ledgerCmd)

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show pending, posted and available balances",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/v1/accounts/" + args[0] + "/balance")
		},
	}

	accountCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(accountCmd)

	transactionCmd := &cobra.Command{
		Use:   "transaction",
		Short: "Transaction operations",
	}

	getTxnCmd := &cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show a transaction with its entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			get("/v1/transactions/" + args[0])
		},
	}

	transactionCmd.AddCommand(getTxnCmd)
	rootCmd.AddCommand(transactionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func get(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	printJSON(body)
}

func createLedger(name string) {
	payload := fmt.Sprintf(`{"name": %q}`, name)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/ledgers", strings.NewReader(payload))
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", ulid.Make().String())

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		fmt.Printf("Ledger creation failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	fmt.Println("Ledger created")
	printJSON(body)
}

func checkConsistency(ledgerID string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/v1/ledgers/" + ledgerID + "/consistency")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Consistency check FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	consistent, _ := result["consistent"].(bool)
	if !consistent {
		fmt.Println("Consistency check FAILED: drift detected")
		printJSON(body)
		os.Exit(1)
	}

	fmt.Println("Consistency check PASSED")
	printJSON(body)
}

func printJSON(body []byte) {
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		fmt.Println(string(body))
		return
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Println(string(body))
		return
	}

	fmt.Println(string(pretty))
}
