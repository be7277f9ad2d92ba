package main

import (
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/destlaver/chainbreaker"
	"github.com/destlaver/chainbreaker/internal/export"
	"github.com/destlaver/chainbreaker/internal/match"
	"github.com/spf13/cobra"
)

var (
	filePath   string
	password   string
	rawKeyHex  string
	unlockFile string
	exportDir  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chainbreaker",
		Short:         "Recover passwords, certificates and private keys from a legacy Apple keychain file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Parse and decrypt a keychain file",
		RunE:  runRead,
	}
	readCmd.Flags().StringVar(&filePath, "file", "", "path to the .keychain file (required)")
	readCmd.Flags().StringVar(&password, "password", "", "keychain passphrase")
	readCmd.Flags().StringVar(&rawKeyHex, "key", "", "hex-encoded 24-byte wrapping key")
	readCmd.Flags().StringVar(&unlockFile, "unlock-file", "", "path to a system unlock file")
	readCmd.Flags().StringVar(&exportDir, "export-dir", "", "directory to export recovered certs/keys into")
	_ = readCmd.MarkFlagRequired("file")
	readCmd.MarkFlagsMutuallyExclusive("password", "key", "unlock-file")
	readCmd.MarkFlagsOneRequired("password", "key", "unlock-file")

	root.AddCommand(readCmd)
	return root
}

func runRead(cmd *cobra.Command, args []string) error {
	cred, err := credentialFromFlags()
	if err != nil {
		return err
	}

	result, err := chainbreaker.ReadFile(filePath, cred)
	if err != nil {
		// A wrong password or unusable raw-key/unlock-blob credential (spec §7
		// category 2) is reported as a notice, not a process failure: spec.md
		// §6 keeps this path at exit 0 ("decrypted nothing because password
		// wrong — output empty fields"), matching the original tool's bare
		// sys.exit() on the same path. Every other error — bad signature,
		// file I/O — still exits non-zero.
		if errors.Is(err, chainbreaker.ErrInvalidCredential) {
			fmt.Fprintln(os.Stderr, "notice:", err)
			return nil
		}
		return err
	}

	printResult(result)

	if exportDir != "" {
		if err := exportResult(result, exportDir); err != nil {
			return err
		}
	}

	return nil
}

func credentialFromFlags() (chainbreaker.Credential, error) {
	switch {
	case rawKeyHex != "":
		key, err := hex.DecodeString(rawKeyHex)
		if err != nil {
			return chainbreaker.Credential{}, fmt.Errorf("invalid --key hex: %w", err)
		}
		return chainbreaker.Credential{RawKey: key}, nil
	case unlockFile != "":
		buf, err := os.ReadFile(unlockFile)
		if err != nil {
			return chainbreaker.Credential{}, err
		}
		return chainbreaker.Credential{UnlockBlob: buf}, nil
	default:
		return chainbreaker.Credential{Passphrase: password}, nil
	}
}

func printResult(result *chainbreaker.Result) {
	for _, p := range result.GenericPasswords {
		fmt.Printf("generic password: account=%q service=%q password=%q\n", p.Account, p.Service, p.Password)
	}
	for _, p := range result.InternetPasswords {
		fmt.Printf("internet password: account=%q server=%q password=%q\n", p.Account, p.Server, p.Password)
	}
	for _, p := range result.AppleSharePasswords {
		fmt.Printf("appleshare password: account=%q server=%q password=%q\n", p.Account, p.Server, p.Password)
	}
	for i, c := range result.Certificates {
		fmt.Printf("certificate %d: subject=%q notice=%q\n", i, c.Subject, c.Notice)
	}
	for i, k := range result.PrivateKeys {
		fmt.Printf("private key %d: label=%q notice=%q\n", i, k.Label, k.Notice)
	}
	for _, n := range result.Notices {
		fmt.Fprintln(os.Stderr, "notice:", n)
	}
}

func exportResult(result *chainbreaker.Result, dir string) error {
	var certs []*x509.Certificate
	for i, c := range result.Certificates {
		if c.Parsed == nil {
			continue
		}
		certs = append(certs, c.Parsed)
		if err := export.WriteCert(dir, i, c.DER); err != nil {
			return err
		}
	}

	var keys []match.PrivateKeyMaterial
	for i, k := range result.PrivateKeys {
		if len(k.KeyMaterial) == 0 {
			continue
		}
		keys = append(keys, match.PrivateKeyMaterial{Label: k.Label, DER: k.KeyMaterial, KeyType: k.KeyType})
		if err := export.WriteKey(dir, i, k.KeyMaterial); err != nil {
			return err
		}
	}

	for _, pair := range match.Match(certs, keys) {
		fmt.Printf("matched certificate %q to private key %q\n", pair.Certificate.Subject, pair.Key.Label)
	}
	return nil
}
