// Command client is a line-oriented front end over the chat synchronizer,
// talking straight to the backing store the way the browser pages talk to the
// hosted backend. All state and timing logic lives in internal/chat; this
// binary only reads commands and prints views.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/thymlegram/thymlegram/internal/chat"
	"github.com/thymlegram/thymlegram/internal/config"
	"github.com/thymlegram/thymlegram/internal/store/postgres"
)

func main() {
	ctx := context.Background()

	st, err := postgres.Open(config.Envs.DB_URL)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	svc := chat.NewService(st, config.Envs.MessageKey)
	in := bufio.NewScanner(os.Stdin)

	fmt.Print("username: ")
	if !in.Scan() {
		return
	}
	username := strings.TrimSpace(in.Text())
	fmt.Print("password: ")
	if !in.Scan() {
		return
	}
	password := in.Text()

	user, err := st.ProfileByUsername(ctx, username)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Fatal("Login failed: invalid credentials")
	}

	session := chat.NewSession(svc, st, user)
	session.OnAlert(func(a chat.Alert) {
		fmt.Printf("\n[new message] %s: %s\n> ", a.From, a.Preview)
	})
	if err := session.Start(ctx); err != nil {
		log.Fatalf("Start session: %v", err)
	}
	defer session.Close()

	temp := chat.NewTempSession(svc, st, user)
	if err := temp.Start(ctx); err != nil {
		log.Fatalf("Start temporary session: %v", err)
	}
	defer temp.Close()

	fmt.Printf("Logged in as %s. Type /help for commands.\n", user.Username)

	tempMode := false
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			var err error
			if tempMode {
				err = temp.Send(ctx, line)
			} else {
				err = session.Send(ctx, line)
			}
			if err != nil {
				fmt.Println("error:", err)
			}
			continue
		}

		cmd, arg, _ := strings.Cut(line[1:], " ")
		switch cmd {
		case "help":
			fmt.Println(`/contacts            list contacts
/add <username>      add a contact
/open <n>           open conversation n
/temp                toggle temporary mode
/tempadd <user> <m>  temporary conversation, m minutes
/time                remaining time (temporary mode)
/stop                stop the open temporary conversation
/quit                exit`)

		case "contacts":
			if tempMode {
				for i, c := range temp.Contacts() {
					fmt.Printf("%d. %s (expires %s)\n", i+1, c.Username, chat.RemainingTime(c.ExpiresAt, time.Now()))
				}
			} else {
				for i, c := range session.Contacts() {
					fmt.Printf("%d. %s  %s\n", i+1, c.Username, c.LastMessage)
				}
			}

		case "add":
			if err := session.AddContact(ctx, arg); err != nil {
				fmt.Println("error:", err)
			}

		case "tempadd":
			name, minutes, _ := strings.Cut(arg, " ")
			m, err := strconv.Atoi(strings.TrimSpace(minutes))
			if err != nil || m <= 0 {
				m = 10
			}
			if err := temp.Add(ctx, name, time.Duration(m)*time.Minute); err != nil {
				fmt.Println("error:", err)
			}

		case "open":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				fmt.Println("usage: /open <n>")
				continue
			}
			if tempMode {
				contacts := temp.Contacts()
				if n > len(contacts) {
					fmt.Println("no such contact")
					continue
				}
				if err := temp.Select(ctx, contacts[n-1].ID); err != nil {
					fmt.Println("error:", err)
					continue
				}
				for _, m := range temp.Messages() {
					printMessage(m, user.ID.String())
				}
			} else {
				contacts := session.Contacts()
				if n > len(contacts) {
					fmt.Println("no such contact")
					continue
				}
				if err := session.Select(ctx, contacts[n-1].ID); err != nil {
					fmt.Println("error:", err)
					continue
				}
				for _, m := range session.Messages() {
					printMessage(m, user.ID.String())
				}
			}

		case "temp":
			tempMode = !tempMode
			if tempMode {
				fmt.Println("temporary mode on")
			} else {
				fmt.Println("temporary mode off")
			}

		case "time":
			if r := temp.Remaining(); r != "" {
				fmt.Println(r)
			} else {
				fmt.Println("no temporary conversation open")
			}

		case "stop":
			if err := temp.Stop(ctx); err != nil {
				fmt.Println("error:", err)
			}

		case "quit":
			return

		default:
			fmt.Println("unknown command, try /help")
		}
	}
}

func printMessage(m chat.Message, selfID string) {
	marker := "  "
	if m.SenderID.String() == selfID {
		marker = "> "
	}
	fmt.Printf("%s%s  %s\n", marker, m.CreatedAt.Format("15:04"), m.Content)
}
