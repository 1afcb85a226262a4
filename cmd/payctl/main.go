// payctl drives a running algopay service from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/congo-pay/algopay/internal/address"
)

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "payctl"
	app.Usage = "send payments through an algopay service"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "server",
			Value:  "http://127.0.0.1:8080",
			Usage:  "algopay base url",
			EnvVar: "ALGOPAY_URL",
		},
		cli.StringFlag{
			Name:   "api-key",
			Usage:  "API key for mutating calls; prompted for when omitted on a terminal",
			EnvVar: "ALGOPAY_API_KEY",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 2 * time.Minute,
			Usage: "request timeout, long enough to cover confirmation",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "connect",
			Usage:  "pair with the wallet",
			Action: postAction("/session/connect"),
		},
		{
			Name:   "reconnect",
			Usage:  "restore a previous wallet pairing",
			Action: postAction("/session/reconnect"),
		},
		{
			Name:   "disconnect",
			Usage:  "end the wallet pairing",
			Action: postAction("/session/disconnect"),
		},
		{
			Name:   "status",
			Usage:  "show the connected account",
			Action: getAction(func(*cli.Context) (string, error) { return "/session", nil }),
		},
		{
			Name:      "balance",
			Usage:     "show native and asset balances",
			ArgsUsage: "[address]",
			Action: getAction(func(c *cli.Context) (string, error) {
				if c.NArg() == 0 {
					return "/balance", nil
				}
				addr, err := address.Normalize(c.Args().First())
				if err != nil {
					return "", err
				}
				return "/balance?address=" + url.QueryEscape(addr), nil
			}),
		},
		{
			Name:      "send",
			Usage:     "send a single payment",
			ArgsUsage: "<recipient> <amount>",
			Flags:     []cli.Flag{assetFlag, idemFlag},
			Action:    sendAction,
		},
		{
			Name:      "bulk",
			Usage:     "send one asset to every address,amount row of a CSV file as an atomic group",
			ArgsUsage: "<file.csv>",
			Flags:     []cli.Flag{assetFlag, idemFlag},
			Action:    bulkAction,
		},
		{
			Name:      "opt-in",
			Usage:     "opt the connected account in to an asset",
			ArgsUsage: "<asset>",
			Flags:     []cli.Flag{idemFlag},
			Action:    optInAction,
		},
		{
			Name:      "tx",
			Usage:     "show the recorded outcome of a submission",
			ArgsUsage: "<tx-id>",
			Action: getAction(func(c *cli.Context) (string, error) {
				if c.NArg() != 1 {
					return "", errors.New("expected a transaction id")
				}
				return "/payments/" + url.PathEscape(c.Args().First()), nil
			}),
		},
		{
			Name:   "history",
			Usage:  "list recent submissions of the connected account",
			Flags:  []cli.Flag{cli.IntFlag{Name: "limit", Value: 20}},
			Action: getAction(func(c *cli.Context) (string, error) { return "/payments?limit=" + strconv.Itoa(c.Int("limit")), nil }),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "payctl: %v\n", err)
		os.Exit(1)
	}
}

var (
	assetFlag = cli.StringFlag{Name: "asset", Value: "ALGO", Usage: "asset symbol or id"}
	idemFlag  = cli.StringFlag{Name: "idempotency-key", Usage: "reuse to retry safely; random when omitted"}
)

func client(c *cli.Context, needsKey bool) (*apiClient, error) {
	key := c.GlobalString("api-key")
	if key == "" && needsKey && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprint(os.Stderr, "API key: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read api key: %w", err)
		}
		key = strings.TrimSpace(string(raw))
	}
	return newAPIClient(c.GlobalString("server"), key, c.GlobalDuration("timeout")), nil
}

func getAction(path func(*cli.Context) (string, error)) func(*cli.Context) error {
	return func(c *cli.Context) error {
		p, err := path(c)
		if err != nil {
			return err
		}
		api, err := client(c, false)
		if err != nil {
			return err
		}
		var out any
		if err := api.get(context.Background(), p, &out); err != nil {
			return err
		}
		return printJSON(out)
	}
}

func postAction(path string) func(*cli.Context) error {
	return func(c *cli.Context) error {
		return post(c, path, nil)
	}
}

func post(c *cli.Context, path string, body any) error {
	api, err := client(c, true)
	if err != nil {
		return err
	}
	var out any
	if err := api.post(context.Background(), path, body, c.String("idempotency-key"), &out); err != nil {
		return err
	}
	return printJSON(out)
}

func sendAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("expected <recipient> <amount>")
	}
	recipient, err := address.Normalize(c.Args().Get(0))
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
	}
	return post(c, "/payments", map[string]any{
		"recipient": recipient,
		"amount":    amount,
		"asset":     c.String("asset"),
	})
}

func bulkAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected a CSV file")
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	recipients, err := readRecipients(f)
	if err != nil {
		return err
	}
	return post(c, "/payments/bulk", map[string]any{
		"recipients": recipients,
		"asset":      c.String("asset"),
	})
}

func optInAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected an asset symbol or id")
	}
	return post(c, "/assets/"+url.PathEscape(c.Args().First())+"/opt-in", nil)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
