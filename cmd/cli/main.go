// Command cli is a minimal terminal client for the fintrack API, mainly
// useful for poking at a deployment: it logs in, runs the session guard the
// same way the web dashboard does, and prints the requested listing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fintrack/internal/client"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	month := flag.String("month", "", "optional YYYY-MM month filter")
	list := flag.String("list", "expenses", "what to list: expenses or categories")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -email <email> -password <password> [-month YYYY-MM] [-list expenses|categories]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*addr)

	if err := c.Login(ctx, *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	if !c.Guard(ctx) {
		fmt.Fprintln(os.Stderr, "session rejected by server")
		os.Exit(1)
	}

	var result any
	var err error
	switch *list {
	case "categories":
		result, err = c.ListCategories(ctx)
	case "expenses":
		result, err = c.ListExpenses(ctx, *month)
	default:
		fmt.Fprintf(os.Stderr, "unknown listing: %s\n", *list)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "list %s failed: %v\n", *list, err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
