// Command tools is the chat admin tool. It works directly on the Badger store:
// write commands need the chat server to be stopped.
//
//	tools enroll   -room c1 -user alice -name Alice
//	tools withdraw -room c1 -user alice
//	tools token    -user alice -ttl 24h
//	tools revoke   -user alice
//	tools rooms    -user alice
//	tools dump     -prefix msg:c1:
package main

import (
	"fmt"
	"os"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	JwtSecret      string `env:"JWT_SECRET"`
	TokenIssuer    string `env:"TOKEN_ISSUER,default=challenge-chat"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	command, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	if err := command(config, os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tools enroll|withdraw|token|revoke|rooms|dump [flags]")
}
