package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jlo00/colonyNetwork/pkg/colony"
	"github.com/Jlo00/colonyNetwork/pkg/contracts"
	"github.com/Jlo00/colonyNetwork/pkg/crypto"
	"github.com/Jlo00/colonyNetwork/pkg/finance"
)

type demoReport struct {
	FeeInverse  uint64               `json:"fee_inverse"`
	Task        colony.Task          `json:"task"`
	Settlements []finance.Settlement `json:"settlements"`
	Balances    []balanceRow         `json:"balances"`
	JournalHead string               `json:"journal_head"`
	JournalLen  uint64               `json:"journal_length"`
}

type balanceRow struct {
	Holder string `json:"holder"`
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

func demoCmd() *cobra.Command {
	var (
		feeInverse uint64
		amount     int64
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a funded task from creation to payout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, settings())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			report, err := runDemo(ctx, rt, feeInverse, amount)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(report)
			}
			renderDemo(report)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&feeInverse, "fee-inverse", 0, "network fee inverse to set before payout (0 keeps the profile value)")
	cmd.Flags().Int64Var(&amount, "amount", 10000, "native amount funding the task")
	return cmd
}

func runDemo(ctx context.Context, rt *runtime, feeInverse uint64, amount int64) (*demoReport, error) {
	net := rt.net
	manager, err := crypto.NewEd25519Signer("manager")
	if err != nil {
		return nil, err
	}
	worker, err := crypto.NewEd25519Signer("worker")
	if err != nil {
		return nil, err
	}

	meta, err := net.CreateMetaColony(ctx, manager.Address(), rt.profile.MetaColony.Token)
	if err != nil {
		return nil, err
	}
	if err := net.InitialiseReputationMining(ctx); err != nil {
		return nil, err
	}
	if feeInverse != 0 {
		if err := meta.SetNetworkFeeInverse(ctx, manager.Address(), feeInverse); err != nil {
			return nil, err
		}
	}

	c, err := net.CreateColony(ctx, manager.Address(), contracts.TokenInfo{Symbol: "DEMO", Name: "Demo Colony", Decimals: 18})
	if err != nil {
		return nil, err
	}
	id, err := c.MakeTask(ctx, manager.Address(), colony.RootDomain)
	if err != nil {
		return nil, err
	}

	change := func(m colony.Mutation, signers ...*crypto.Ed25519Signer) error {
		digest, err := c.TaskChangeDigest(id, m)
		if err != nil {
			return err
		}
		sigs := make([][]byte, len(signers))
		for i, s := range signers {
			if sigs[i], err = s.Sign(digest); err != nil {
				return err
			}
		}
		return c.ExecuteTaskChange(ctx, id, m, sigs)
	}

	if err := change(colony.SetBrief{Brief: "ipfs://demo-brief"}, manager); err != nil {
		return nil, err
	}
	if err := change(colony.SetWorker{Worker: worker.Address()}, manager); err != nil {
		return nil, err
	}
	if err := c.ContributeToTask(ctx, manager.Address(), id, contracts.Native, amount); err != nil {
		return nil, err
	}
	if err := change(colony.SetPayout{Role: contracts.RoleWorker, Token: contracts.Native, Amount: amount}, manager, worker); err != nil {
		return nil, err
	}
	if err := change(colony.SubmitDeliverable{Deliverable: "ipfs://demo-work"}, worker); err != nil {
		return nil, err
	}
	settlements, err := c.CompleteAndPayTask(ctx, manager.Address(), id, worker.Address())
	if err != nil {
		return nil, err
	}
	if err := net.StartNextCycle(ctx); err != nil {
		return nil, err
	}
	if err := net.Journal().Verify(ctx); err != nil {
		return nil, err
	}

	task, err := c.Task(id)
	if err != nil {
		return nil, err
	}
	report := &demoReport{
		FeeInverse:  net.FeeInverse(),
		Task:        task,
		Settlements: settlements,
		JournalHead: net.Journal().Head(),
		JournalLen:  net.Journal().Length(),
	}
	holders := []struct {
		name string
		addr contracts.Address
	}{
		{"worker", worker.Address()},
		{"treasury", net.TreasuryAddress()},
	}
	for _, h := range holders {
		for _, m := range net.Holdings(h.addr) {
			report.Balances = append(report.Balances, balanceRow{Holder: h.name, Token: string(m.Token), Amount: m.Amount})
		}
	}
	return report, nil
}

func renderDemo(r *demoReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(fmt.Sprintf("task %d (%s)", r.Task.ID, r.Task.Phase))
	tw.AppendHeader(table.Row{"Token", "Amount", "Payout", "Fee", "Payee"})
	for _, s := range r.Settlements {
		tw.AppendRow(table.Row{s.Token, s.Amount, s.Payout, s.Fee, s.Payee})
	}
	tw.Render()

	tw = table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Holder", "Token", "Balance"})
	for _, b := range r.Balances {
		tw.AppendRow(table.Row{b.Holder, b.Token, b.Amount})
	}
	tw.AppendFooter(table.Row{"fee inverse", r.FeeInverse, ""})
	tw.Render()

	fmt.Printf("journal: %d entries, head %s\n", r.JournalLen, r.JournalHead)
}
