package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) verifyCause(causeID, verifierID string) error {
	c, err := cli.causeSvc.VerifyBeneficiary(context.Background(), causeID, verifierID, nil)
	if err != nil {
		return err
	}
	fmt.Printf("cause %s (%q) verified by %s\n", c.ID, c.Title, verifierID)
	return nil
}
