package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/revealstash/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "preview":
		runPreview(ctx, os.Args[2:])
	case "show":
		runShow(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "ls", "status":
		runStatus(ctx, os.Args[1], os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newFlagSet returns a flag set carrying the shared -v/--verbose flag
func newFlagSet(name string, opts *cmd.Options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.BoolVar(&opts.Verbose, "v", false, "Log merge decisions to stderr")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Log merge decisions to stderr")
	fs.Usage = func() { printCommandHelp(name) }
	return fs
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(_ context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("init", &opts)
	parse(fs, args)

	cmd.Init(opts)
}

func runImport(ctx context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("import", &opts)
	parse(fs, args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: revealstash import <consignment> [consignment...]")
		os.Exit(1)
	}
	cmd.Import(ctx, opts, fs.Args())
}

func runPreview(ctx context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("preview", &opts)
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: revealstash preview <consignment>")
		os.Exit(1)
	}
	cmd.Preview(ctx, opts, fs.Arg(0))
}

func runShow(ctx context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("show", &opts)
	parse(fs, args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: revealstash show <node-id> [node-id...]")
		os.Exit(1)
	}
	cmd.Show(ctx, opts, fs.Args())
}

func runExport(ctx context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("export", &opts)
	var out string
	fs.StringVar(&out, "o", "", "Output consignment file (.json, .yaml or .yml)")
	fs.StringVar(&out, "output", "", "Output consignment file (.json, .yaml or .yml)")
	conceal := fs.Bool("conceal", false, "Conceal every state before writing")
	parse(fs, args)

	if out == "" {
		fmt.Fprintln(os.Stderr, "Usage: revealstash export -o <file> [--conceal] [node-id...]")
		os.Exit(1)
	}
	cmd.Export(ctx, opts, out, fs.Args(), *conceal)
}

func runStatus(ctx context.Context, name string, args []string) {
	var opts cmd.Options
	fs := newFlagSet(name, &opts)
	parse(fs, args)

	cmd.Status(ctx, opts)
}

func runPasswd(_ context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("passwd", &opts)
	parse(fs, args)

	cmd.Passwd(opts)
}

func runCompact(_ context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("compact", &opts)
	parse(fs, args)

	cmd.Compact(opts)
}

func runKeyring(_ context.Context, args []string) {
	var opts cmd.Options
	fs := newFlagSet("keyring", &opts)
	parse(fs, args)

	switch fs.Arg(0) {
	case "save":
		cmd.KeyringSave(opts)
	case "delete":
		cmd.KeyringDelete(opts)
	case "status":
		cmd.KeyringStatus(opts)
	default:
		fmt.Fprintln(os.Stderr, "Usage: revealstash keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: revealstash completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("revealstash - Encrypted stash for client-side-validated contract state")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  revealstash <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .revealstash stash in current directory")
	fmt.Println("  import      Reveal-merge consignments into the stash")
	fmt.Println("  preview     Show what an import would reveal, without writing")
	fmt.Println("  show        Print the stored view of a node")
	fmt.Println("  export      Write stored nodes to a consignment file")
	fmt.Println("  ls, status  Show stash status")
	fmt.Println("  passwd      Change stash password")
	fmt.Println("  compact     Compact stash to reclaim disk space")
	fmt.Println("  keyring     Manage the password stored in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  revealstash init                          # Create new stash")
	fmt.Println("  revealstash import transfer.json          # Merge a consignment")
	fmt.Println("  revealstash preview transfer.yaml         # See what it would reveal")
	fmt.Println("  revealstash export -o out.json --conceal  # Share commitments only")
	fmt.Println()
	fmt.Println("Use 'revealstash help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("revealstash init")
		fmt.Println()
		fmt.Println("Creates a .revealstash stash file in the current directory.")
		fmt.Println("Prompts for a password that will be used for encryption.")
		fmt.Println("The password is not stored anywhere unless saved to the keyring.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  revealstash init")
	case "import":
		fmt.Println("revealstash import [-v|--verbose] <consignment> [consignment...]")
		fmt.Println()
		fmt.Println("Reveal-merges consignment files (.json, .yaml, .yml) into the stash.")
		fmt.Println("Unknown nodes are added. Known nodes keep the most revealed form of")
		fmt.Println("every state seen so far. A node whose commitments disagree with the")
		fmt.Println("stored copy rejects the whole file and nothing is written.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -v, --verbose   Log each merge decision")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  revealstash import transfer.json")
		fmt.Println("  revealstash import from-alice.yaml from-bob.yaml")
	case "preview":
		fmt.Println("revealstash preview [-v|--verbose] <consignment>")
		fmt.Println()
		fmt.Println("Shows a unified diff of what importing the consignment would reveal.")
		fmt.Println("The stash is not modified.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  revealstash preview transfer.json")
	case "show":
		fmt.Println("revealstash show <node-id> [node-id...]")
		fmt.Println()
		fmt.Println("Prints the stored view of each node, one state per line.")
		fmt.Println("A unique id prefix is enough.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  revealstash show 3fa9c2d1")
	case "export":
		fmt.Println("revealstash export -o <file> [--conceal] [node-id...]")
		fmt.Println()
		fmt.Println("Writes stored nodes to a consignment file. Without node ids every")
		fmt.Println("node is exported. The format follows the file extension.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -o, --output    Output file (.json, .yaml or .yml)")
		fmt.Println("  --conceal       Conceal every seal and payload before writing")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  revealstash export -o all.json")
		fmt.Println("  revealstash export -o proof.yaml --conceal 3fa9c2d1")
	case "ls", "status":
		fmt.Println("revealstash status")
		fmt.Println()
		fmt.Println("Shows stash status including:")
		fmt.Println("  - Encryption details")
		fmt.Println("  - Node counts by type")
		fmt.Println("  - State counts by disclosure level")
		fmt.Println("  - Git status of the stash and imported consignments")
		fmt.Println()
		fmt.Println("Does not require a password. 'ls' is an alias.")
	case "passwd":
		fmt.Println("revealstash passwd")
		fmt.Println()
		fmt.Println("Changes the stash password.")
		fmt.Println("Re-encrypts every node with a key derived from the new password.")
	case "compact":
		fmt.Println("revealstash compact")
		fmt.Println()
		fmt.Println("Compacts the .revealstash database to reclaim unused disk space.")
		fmt.Println("This is done automatically after 'passwd'.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("revealstash keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the stash password in the OS keyring.")
		fmt.Println("Set REVEALSTASH_PASSWORD to skip both keyring and prompt.")
	case "completion":
		fmt.Println("revealstash completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(revealstash completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(revealstash completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  revealstash completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
