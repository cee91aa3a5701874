// Command cli is an interactive console client for the ledger API. It drives
// the same HTTP surface the server exposes, so everything the menu offers is
// subject to the server's lockout, denomination and daily-limit rules.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
	in      *bufio.Reader
}

type apiResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	// Problem-details fields, set on errors.
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "ledger API base URL")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		in:      bufio.NewReader(os.Stdin),
	}

	color.Cyan("Ledger console (%s)", c.baseURL)
	for {
		if c.token == "" {
			c.anonymousMenu()
		} else {
			c.sessionMenu()
		}
	}
}

func (c *client) anonymousMenu() {
	fmt.Println()
	color.Yellow("1) Login  2) Register  q) Quit")
	switch c.prompt("> ") {
	case "1":
		c.login()
	case "2":
		c.register()
	case "q":
		os.Exit(0)
	}
}

func (c *client) sessionMenu() {
	fmt.Println()
	color.Yellow("1) Deposit  2) Withdraw  3) Balance  4) Transactions  5) Transfer")
	color.Yellow("6) Send to user  7) My history  8) Change password  9) Logout  q) Quit")
	switch c.prompt("> ") {
	case "1":
		account := c.prompt("Account (Checking/Savings): ")
		amount := c.prompt("Amount: ")
		c.call(http.MethodPost, "/account/"+account+"/deposit", map[string]string{"amount": amount})
	case "2":
		account := c.prompt("Account (Checking/Savings): ")
		amount := c.prompt("Amount: ")
		c.call(http.MethodPost, "/account/"+account+"/withdraw", map[string]string{"amount": amount})
	case "3":
		account := c.prompt("Account (Checking/Savings): ")
		c.call(http.MethodGet, "/account/"+account+"/balance", nil)
	case "4":
		account := c.prompt("Account (Checking/Savings): ")
		c.call(http.MethodGet, "/account/"+account+"/transactions", nil)
	case "5":
		from := c.prompt("From account: ")
		to := c.prompt("To account: ")
		amount := c.prompt("Amount: ")
		c.call(http.MethodPost, "/account/"+from+"/transfer",
			map[string]string{"to_account": to, "amount": amount})
	case "6":
		from := c.prompt("From account: ")
		to := c.prompt("Recipient username: ")
		toAccount := c.prompt("Recipient account (Checking/Savings): ")
		amount := c.prompt("Amount: ")
		c.call(http.MethodPost, "/account/"+from+"/transfer/external",
			map[string]string{"to_username": to, "recipient_account_name": toAccount, "amount": amount})
	case "7":
		c.call(http.MethodGet, "/user/history", nil)
	case "8":
		current := promptPassword("Current password: ")
		newPass := promptPassword("New password: ")
		resp := c.call(http.MethodPost, "/auth/change-password",
			map[string]string{"current_password": current, "new_password": newPass})
		if resp != nil && resp.Status == http.StatusLocked {
			c.token = ""
		}
	case "9":
		c.call(http.MethodPost, "/auth/logout", nil)
		c.token = ""
	case "q":
		os.Exit(0)
	}
}

func (c *client) login() {
	username := c.prompt("Username: ")
	password := promptPassword("Password: ")
	resp := c.call(http.MethodPost, "/auth/login",
		map[string]string{"username": username, "password": password})
	if resp == nil || resp.Data == nil {
		return
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err == nil && data.Token != "" {
		c.token = data.Token
		color.Green("Logged in as %s", username)
	}
}

func (c *client) register() {
	username := c.prompt("Username: ")
	password := promptPassword("Password (needs an uppercase letter and a digit): ")
	question := c.prompt("Security question: ")
	answer := c.prompt("Security answer: ")
	c.call(http.MethodPost, "/auth/register", map[string]string{
		"username": username, "password": password,
		"security_question": question, "security_answer": answer,
	})
}

// call performs one API request and renders the outcome. It returns the
// decoded envelope, or nil when the request itself failed.
func (c *client) call(method, path string, body map[string]string) *apiResponse {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			color.Red("request encode failed: %v", err)
			return nil
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		color.Red("bad request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		color.Red("request failed: %v", err)
		return nil
	}
	defer httpResp.Body.Close() //nolint:errcheck

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		color.Red("unexpected response (%d)", httpResp.StatusCode)
		return nil
	}
	resp.Status = httpResp.StatusCode

	if httpResp.StatusCode >= 400 {
		if resp.Detail != "" {
			color.Red("%s: %s", resp.Title, resp.Detail)
		} else {
			color.Red("%s", resp.Title)
		}
		if httpResp.StatusCode == http.StatusUnauthorized {
			c.token = ""
		}
		return &resp
	}

	color.Green("%s", resp.Message)
	if len(resp.Data) > 0 {
		printData(resp.Data)
	}
	return &resp
}

// printData renders the data payload: history lists line by line, everything
// else as key/value pairs.
func printData(raw json.RawMessage) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		fmt.Println(string(raw))
		return
	}
	for key, value := range m {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			for _, line := range list {
				fmt.Println("  " + line)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			fmt.Printf("  %s: %s\n", key, s)
			continue
		}
		fmt.Printf("  %s: %s\n", key, string(value))
	}
}

func (c *client) prompt(label string) string {
	fmt.Print(label)
	line, err := c.in.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(raw)
}
