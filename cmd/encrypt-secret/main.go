// Command encrypt-secret шифрует API ключи для .env
//
// Использование:
//
//	encrypt-secret -generate-key
//	ENCRYPTION_KEY=... encrypt-secret -value <secret>
//	echo -n <secret> | ENCRYPTION_KEY=... encrypt-secret
//
// Результат (enc:<base64>) подставляется в COINMOTION_API_KEY или
// COINMOTION_API_SECRET.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bitcharge/pkg/crypto"
)

func main() {
	generate := flag.Bool("generate-key", false, "generate a new ENCRYPTION_KEY and exit")
	value := flag.String("value", "", "plaintext to encrypt (read from stdin when empty)")
	flag.Parse()

	if err := run(*generate, *value, os.Getenv("ENCRYPTION_KEY"), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "encrypt-secret:", err)
		os.Exit(1)
	}
}

func run(generate bool, value, encodedKey string, in io.Reader, out io.Writer) error {
	if generate {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, key)
		return err
	}

	if encodedKey == "" {
		return crypto.ErrMissingKey
	}
	key, err := crypto.ParseKey(encodedKey)
	if err != nil {
		return err
	}

	if value == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	if value == "" {
		return fmt.Errorf("nothing to encrypt")
	}

	sealed, err := crypto.Seal(value, key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, sealed)
	return err
}
