package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/privia-labs/privia/internal/cycle"
	"github.com/privia-labs/privia/internal/rpcclient"
)

// ── score ───────────────────────────────────────────────────────────────

func cmdScore(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: privia-cli score <account>")
	}
	res, err := client.Score(mustAccount(args[0]))
	if err != nil {
		fatal("staking_getScore: %v", err)
	}
	fmt.Printf("Account: %s\n", res.Account)
	fmt.Printf("Cycle:   %d\n", res.Cycle)
	fmt.Printf("Score:   %s\n", formatAmount(res.Score, tokenDecimals(client)))
}

// ── rewards ─────────────────────────────────────────────────────────────

func cmdRewards(client *rpcclient.Client, args []string) {
	if len(args) < 3 {
		fatal("Usage: privia-cli rewards <account> <from> <to>  (times in RFC 3339 or unix nanoseconds)")
	}
	from, err := parseTime(args[1])
	if err != nil {
		fatal("%v", err)
	}
	to, err := parseTime(args[2])
	if err != nil {
		fatal("%v", err)
	}
	res, err := client.Rewards(mustAccount(args[0]), from, to)
	if err != nil {
		fatal("staking_getRewards: %v", err)
	}
	fmt.Printf("Account: %s\n", res.Account)
	fmt.Printf("Rewards: %s token-nanoseconds\n", res.Rewards)
}

// ── discount ────────────────────────────────────────────────────────────

func cmdDiscount(client *rpcclient.Client, args []string) {
	if len(args) < 2 {
		fatal("Usage: privia-cli discount <account> <price>")
	}
	res, err := client.Discount(mustAccount(args[0]), mustAmount(client, args[1]))
	if err != nil {
		fatal("discount_get: %v", err)
	}
	decimals := tokenDecimals(client)
	fmt.Printf("Account:  %s\n", res.Account)
	fmt.Printf("Price:    %s\n", formatAmount(res.Price, decimals))
	fmt.Printf("Score:    %s\n", formatAmount(res.Score, decimals))
	fmt.Printf("Discount: %s%%\n", res.Discount)
}

// ── cycle ───────────────────────────────────────────────────────────────

func cmdCycle(client *rpcclient.Client, args []string) {
	var (
		c   cycle.Cycle
		err error
	)
	which := "current"
	if len(args) > 0 {
		which = args[0]
	}
	switch which {
	case "current":
		c, err = client.CurrentCycle()
	case "next-voting":
		c, err = client.NextVotingCycle()
	default:
		n, perr := strconv.ParseUint(which, 10, 64)
		if perr != nil {
			fatal("Usage: privia-cli cycle [current|next-voting|<number>]")
		}
		c, err = client.CycleDetails(n)
	}
	if err != nil {
		fatal("cycle: %v", err)
	}
	fmt.Printf("Cycle: %d\n", c.Number)
	fmt.Printf("Start: %s\n", formatTime(c.Start))
	fmt.Printf("End:   %s\n", formatTime(c.End))
}

// ── staking ─────────────────────────────────────────────────────────────

func cmdStaking(client *rpcclient.Client, args []string) {
	if len(args) < 1 || args[0] != "log" {
		fatal("Usage: privia-cli staking log <account> [from] [to]")
	}
	cmdStakingLog(client, args[1:])
}

func cmdStakingLog(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: privia-cli staking log <account> [from] [to]  (times in RFC 3339 or unix nanoseconds)")
	}
	from, to, err := parseRange(args[1:])
	if err != nil {
		fatal("%v", err)
	}
	res, err := client.StakingLog(mustAccount(args[0]), from, to)
	if err != nil {
		fatal("staking_getLog: %v", err)
	}
	decimals := tokenDecimals(client)
	fmt.Printf("Range: %s .. %s\n", formatTime(res.From), formatTime(res.To))
	if len(res.Entries) == 0 {
		fmt.Println("No entries.")
		return
	}
	fmt.Printf("%-20s  %20s  %20s\n", "TIME", "PREVIOUS", "CURRENT")
	for _, e := range res.Entries {
		fmt.Printf("%-20s  %20s  %20s\n",
			formatTime(e.Timestamp),
			formatAmount(e.PreviousAmount, decimals),
			formatAmount(e.CurrentAmount, decimals))
	}
}

// parseRange reads optional from and to times.
func parseRange(args []string) (from, to *uint64, err error) {
	if len(args) > 0 {
		v, err := parseTime(args[0])
		if err != nil {
			return nil, nil, err
		}
		from = &v
	}
	if len(args) > 1 {
		v, err := parseTime(args[1])
		if err != nil {
			return nil, nil, err
		}
		to = &v
	}
	if from != nil && to != nil && *from > *to {
		return nil, nil, fmt.Errorf("from is after to")
	}
	return from, to, nil
}

func formatTime(ns uint64) string {
	return time.Unix(0, int64(ns)).UTC().Format(time.RFC3339)
}

// parseTime accepts RFC 3339 or unix nanoseconds.
func parseTime(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if t.UnixNano() < 0 {
		return 0, fmt.Errorf("time %q before 1970", s)
	}
	return uint64(t.UnixNano()), nil
}
