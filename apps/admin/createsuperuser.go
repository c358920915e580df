package main

import "context"

func (cli *commandLine) createSuperuser(uname, email, pwd string) error {
	_, err := cli.usrSvc.CreateSuperuser(context.Background(), uname, email, pwd)
	return err
}
