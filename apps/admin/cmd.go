package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/trezcool/mtihani/core"
	"github.com/trezcool/mtihani/core/quiz"
	"github.com/trezcool/mtihani/storage/database"
	sqlxrepos "github.com/trezcool/mtihani/storage/database/sqlx"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf *core.Config
	db   *sql.DB
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  createdb                          - create the app database and user if missing")
	fmt.Println("  migrate [up|down|status|version]  - run database migrations (default: up)")
	fmt.Println("  addquiz -file FILE [-publish]     - load a quiz definition from a JSON file")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addQuizCmd := flag.NewFlagSet("addquiz", flag.ExitOnError)
	addQuizFile := addQuizCmd.String("file", "", "Path to a JSON quiz definition.")
	addQuizPublish := addQuizCmd.Bool("publish", false, "Publish the quiz right away.")

	switch args[1] {
	case "createdb":
		return database.CreateIfNotExist(cli.conf)
	case "migrate":
		if err := cli.openDB(); err != nil {
			return err
		}
		command := "up"
		if len(args) > 2 {
			command = args[2]
		}
		return cli.migrate(command, args[3:])
	case "addquiz":
		if err := addQuizCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addQuizFile == "" {
			addQuizCmd.Usage()
			return errHelp
		}
		if err := cli.openDB(); err != nil {
			return err
		}
		return cli.addQuiz(*addQuizFile, *addQuizPublish)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) openDB() error {
	db, err := database.Open(cli.conf)
	if err != nil {
		return err
	}
	if err = db.Ping(); err != nil {
		return err
	}
	cli.db = db
	return nil
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
	}
}

func (cli *commandLine) quizService() *quiz.Service {
	return quiz.NewService(sqlxrepos.NewQuizRepository(cli.db), core.NewClock())
}
