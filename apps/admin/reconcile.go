package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) reconcile(causeID string) error {
	c, err := cli.ledger.Recompute(context.Background(), causeID)
	if err != nil {
		return err
	}
	fmt.Printf(
		"cause %s reconciled: raised=%d donors=%d withdrawn=%d available=%d\n",
		c.ID, c.CurrentAmount, c.DonorCount, c.WithdrawnAmount, c.AvailableForWithdrawal,
	)
	return nil
}
