package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_revealstash() {
    local cur prev words cword
    _init_completion || return

    local commands="init import preview show export ls status passwd compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        import|preview)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-v --verbose" -- "$cur"))
            else
                _filedir '@(json|yaml|yml)'
            fi
            ;;
        show)
            # Complete with node ids from the stash
            local ids
            ids=$(revealstash ls 2>/dev/null | awk '/^  [0-9a-f]{8} / {print $1}')
            COMPREPLY=($(compgen -W "$ids" -- "$cur"))
            ;;
        export)
            if [[ "$prev" == "-o" || "$prev" == "--output" ]]; then
                _filedir '@(json|yaml|yml)'
            elif [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-o --output --conceal -v --verbose" -- "$cur"))
            else
                local ids
                ids=$(revealstash ls 2>/dev/null | awk '/^  [0-9a-f]{8} / {print $1}')
                COMPREPLY=($(compgen -W "$ids" -- "$cur"))
            fi
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _revealstash revealstash
`

const zshCompletion = `#compdef revealstash

_revealstash() {
    local -a commands
    commands=(
        'init:Create a .revealstash stash in current directory'
        'import:Reveal-merge consignments into the stash'
        'preview:Show what an import would reveal'
        'show:Print the stored view of a node'
        'export:Write stored nodes to a consignment file'
        'ls:Show stash status'
        'status:Show stash status'
        'passwd:Change stash password'
        'compact:Compact stash to reclaim disk space'
        'keyring:Manage the keyring password'
        'completion:Generate shell completions'
        'help:Show help for a command'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe -t commands 'revealstash command' commands
            ;;
        args)
            case $words[1] in
                import|preview)
                    _arguments \
                        '(-v --verbose)'{-v,--verbose}'[Log merge decisions]' \
                        '*:consignment:_files -g "*.(json|yaml|yml)"'
                    ;;
                export)
                    _arguments \
                        '(-o --output)'{-o,--output}'[Output file]:file:_files -g "*.(json|yaml|yml)"' \
                        '--conceal[Conceal every state]' \
                        '(-v --verbose)'{-v,--verbose}'[Log merge decisions]' \
                        '*:node id:'
                    ;;
                keyring)
                    _values 'action' save delete status
                    ;;
                help)
                    _describe -t commands 'revealstash command' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_revealstash "$@"
`

const fishCompletion = `# revealstash completions
set -l commands init import preview show export ls status passwd compact keyring completion help

complete -c revealstash -f
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a .revealstash stash in current directory'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a import -d 'Reveal-merge consignments into the stash'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a preview -d 'Show what an import would reveal'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a show -d 'Print the stored view of a node'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a export -d 'Write stored nodes to a consignment file'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a 'ls status' -d 'Show stash status'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change stash password'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact stash to reclaim disk space'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage the keyring password'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate shell completions'
complete -c revealstash -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help for a command'

complete -c revealstash -n "__fish_seen_subcommand_from import preview" -F -a '(__fish_complete_suffix .json .yaml .yml)'
complete -c revealstash -n "__fish_seen_subcommand_from import preview export" -s v -l verbose -d 'Log merge decisions'
complete -c revealstash -n "__fish_seen_subcommand_from export" -s o -l output -r -F -d 'Output file'
complete -c revealstash -n "__fish_seen_subcommand_from export" -l conceal -d 'Conceal every state'
complete -c revealstash -n "__fish_seen_subcommand_from keyring" -a 'save delete status'
complete -c revealstash -n "__fish_seen_subcommand_from completion" -a 'bash zsh fish'
complete -c revealstash -n "__fish_seen_subcommand_from help" -a "$commands"
`
