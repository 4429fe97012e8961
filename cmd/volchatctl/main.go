package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/voluntr/volchat/internal/api"
	"github.com/voluntr/volchat/internal/config"
	"github.com/voluntr/volchat/internal/profile"
	"github.com/voluntr/volchat/internal/tui/client"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	userFlag := flag.String("user", "", "user id (for login)")
	nameFlag := flag.String("name", "", "display name (for login)")
	emailFlag := flag.String("email", "", "email address (for login)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "login":
		cmdLogin(profileName, *userFlag, *nameFlag, *emailFlag)
		return
	case "logout":
		cmdLogout(profileName)
		return
	case "config":
		cmdConfig(*jsonFlag)
		return
	}

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	c := client.New(cfg.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "seed":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: volchatctl seed <users|messages|export> <file.json>")
			os.Exit(1)
		}
		cmdSeed(ctx, c, args[1], args[2])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: volchatctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                        Show daemon status")
	fmt.Fprintln(os.Stderr, "  login --user <id> --name <n> --email <e>")
	fmt.Fprintln(os.Stderr, "                                Write the profile identity")
	fmt.Fprintln(os.Stderr, "  logout                        Clear the profile identity")
	fmt.Fprintln(os.Stderr, "  config                        Print the resolved config")
	fmt.Fprintln(os.Stderr, "  seed users <file.json>        Feed directory records to the daemon")
	fmt.Fprintln(os.Stderr, "  seed messages <file.json>     Feed messages to the daemon")
	fmt.Fprintln(os.Stderr, "  seed export <file.json>       Feed a raw portal export to the daemon")
}

func cmdStatus(ctx context.Context, c *client.Client, asJSON bool) {
	st, err := c.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if asJSON {
		out, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("profile: %s\n", st.Profile)
	fmt.Printf("state:   %s\n", st.State)
	if st.UserID != "" {
		fmt.Printf("user:    %s (%s)\n", st.UserName, st.UserID)
	} else {
		fmt.Println("user:    (not logged in)")
	}
}

func cmdLogin(profileName, userID, name, email string) {
	if userID == "" || email == "" {
		fmt.Fprintln(os.Stderr, "usage: volchatctl login --user <id> --name <name> --email <email>")
		os.Exit(1)
	}
	id := &profile.Identity{UserID: userID, Name: name, Email: email}
	if err := profile.SaveIdentity(profileName, id); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("identity saved for profile %q; restart volchatd to pick it up\n", profileName)
}

func cmdLogout(profileName string) {
	if err := profile.ClearIdentity(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("identity cleared for profile %q\n", profileName)
}

func cmdConfig(asJSON bool) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if asJSON {
		out, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("default_profile: %s\n", cfg.DefaultProfile)
	fmt.Printf("listen_addr:     %s\n", cfg.Addr())
	fmt.Printf("log_level:       %s\n", cfg.LogLevel)
}

func cmdSeed(ctx context.Context, c *client.Client, kind, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch kind {
	case "users":
		var users []api.UserDTO
		if err := json.Unmarshal(data, &users); err != nil {
			fmt.Fprintf(os.Stderr, "error: parse %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := c.IngestUsers(ctx, users); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("submitted %d directory records\n", len(users))
	case "messages":
		var msgs []api.MessageDTO
		if err := json.Unmarshal(data, &msgs); err != nil {
			fmt.Fprintf(os.Stderr, "error: parse %s: %v\n", path, err)
			os.Exit(1)
		}
		if err := c.IngestMessages(ctx, msgs); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("submitted %d messages\n", len(msgs))
	case "export":
		msgs, users, skipped, err := c.IngestExport(ctx, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("submitted %d messages, %d users (%d skipped)\n", msgs, users, skipped)
	default:
		fmt.Fprintln(os.Stderr, "usage: volchatctl seed <users|messages|export> <file.json>")
		os.Exit(1)
	}
}
