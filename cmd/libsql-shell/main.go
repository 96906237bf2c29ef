// Command libsql-shell is a minimal interactive SQL shell against a libsql
// server. Plain statements run in autocommit mode; "begin" opens an
// interactive transaction that following statements join until "commit" or
// "rollback".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/giovannibenussi/libsql-client-go/client"
)

const version = "0.1.0"

func main() {
	var (
		url       = flag.String("url", os.Getenv("LIBSQL_URL"), "database URL (libsql://, ws://, wss://, http:// or https://)")
		authToken = flag.String("auth-token", os.Getenv("LIBSQL_AUTH_TOKEN"), "authentication token")
		verbose   = flag.Bool("v", false, "enable debug logging")
		showVer   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("libsql-shell v%s\n", version)
		return
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: libsql-shell -url <database-url> [-auth-token <token>]")
		os.Exit(1)
	}

	opts := client.DefaultOptions()
	opts.AuthToken = *authToken
	if *verbose {
		opts.EnableLogging = true
		opts.LogLevel = "DEBUG"
	}

	c, err := client.Connect(*url, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	if err := repl(c); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func repl(c *client.Client) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	var tx *client.Transaction

	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSuffix(line, ";")

		switch {
		case line == "":
		case strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit"):
			if tx != nil {
				tx.Close()
			}
			return nil
		case strings.EqualFold(line, "begin"):
			if tx != nil {
				fmt.Println("already inside a transaction")
				break
			}
			var err error
			tx, err = c.Transaction(ctx)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case strings.EqualFold(line, "commit"):
			if tx == nil {
				fmt.Println("not inside a transaction")
				break
			}
			if err := tx.Commit(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
			tx = nil
		case strings.EqualFold(line, "rollback"):
			if tx == nil {
				fmt.Println("not inside a transaction")
				break
			}
			if err := tx.Rollback(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
			}
			tx = nil
		default:
			run(ctx, c, tx, line)
		}
		fmt.Print("> ")
	}
	if tx != nil {
		tx.Close()
	}
	return scanner.Err()
}

func run(ctx context.Context, c *client.Client, tx *client.Transaction, sql string) {
	var (
		rs  *client.ResultSet
		err error
	)
	if tx != nil {
		rs, err = tx.Execute(ctx, client.NewStatement(sql))
	} else {
		rs, err = c.Execute(ctx, client.NewStatement(sql))
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	printResult(rs)
}

func printResult(rs *client.ResultSet) {
	if len(rs.Columns) > 0 {
		fmt.Println(strings.Join(rs.Columns, "\t"))
	}
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", cell)
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	if len(rs.Rows) == 0 {
		fmt.Printf("%d row(s) affected\n", rs.RowsAffected)
	}
}
