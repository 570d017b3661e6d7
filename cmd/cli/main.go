package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "user":
		handleUser(args)
	case "device":
		handleDevice(args)
	case "reading":
		handleReading(args)
	case "stats":
		handleStats(args)
	case "ai":
		handleAI(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl user <create|list|get|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "create":
		createUser(args[1:])
	case "list":
		listUsers(args[1:])
	case "get":
		getUser(args[1:])
	case "delete":
		deleteUser(args[1:])
	default:
		fmt.Printf("unknown user command: %s\n", subCmd)
	}
}

func handleDevice(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl device <create|list|get|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "create":
		createDevice(args[1:])
	case "list":
		listDevices(args[1:])
	case "get":
		getDevice(args[1:])
	case "delete":
		deleteDevice(args[1:])
	default:
		fmt.Printf("unknown device command: %s\n", subCmd)
	}
}

func handleReading(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl reading <add|list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "add":
		addReading(args[1:])
	case "list":
		listReadings(args[1:])
	default:
		fmt.Printf("unknown reading command: %s\n", subCmd)
	}
}

func handleStats(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl stats <summary|daily|compare>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "summary":
		statsSummary(args[1:])
	case "daily":
		statsDaily(args[1:])
	case "compare":
		statsCompare(args[1:])
	default:
		fmt.Printf("unknown stats command: %s\n", subCmd)
	}
}

func handleAI(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl ai <recommend|analyze|tips|status>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "recommend":
		aiRecommend(args[1:])
	case "analyze":
		aiAnalyze(args[1:])
	case "tips":
		aiTips(args[1:])
	case "status":
		aiStatus()
	default:
		fmt.Printf("unknown ai command: %s\n", subCmd)
	}
}

// User commands
func createUser(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	username := fs.String("username", "", "username")
	fullName := fs.String("name", "", "full name (optional)")
	goal := fs.Float64("goal", 0, "monthly energy goal in kWh (optional)")

	fs.Parse(args)

	if *email == "" || *username == "" {
		fmt.Println("Error: email and username are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"email":    *email,
		"username": *username,
	}
	if *fullName != "" {
		payload["fullName"] = *fullName
	}
	if *goal > 0 {
		payload["energyGoalKwh"] = *goal
	}

	result, status, err := postJSON("/users", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ User created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func listUsers(args []string) {
	_ = args
	var users []map[string]interface{}
	if err := getInto("/users", &users); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCONSUMED_KWH")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["username"], u["email"], u["totalConsumedKwh"])
	}
	w.Flush()
}

func getUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl user get <user-id>")
		return
	}
	printResource("/users/" + args[0])
}

func deleteUser(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl user delete <user-id>")
		return
	}
	deleteResource("/users/"+args[0], "user")
}

// Device commands
func createDevice(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	userID := fs.String("user", "", "owning user ID")
	name := fs.String("name", "", "device name")
	deviceType := fs.String("type", "", "device type (hvac, lighting, appliance, water_heater, solar_panel, smart_meter, other)")
	location := fs.String("location", "", "location (optional)")

	fs.Parse(args)

	if *userID == "" || *name == "" || *deviceType == "" {
		fmt.Println("Error: user, name, and type are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"userId":     *userID,
		"name":       *name,
		"deviceType": *deviceType,
	}
	if *location != "" {
		payload["location"] = *location
	}

	result, status, err := postJSON("/devices", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Device created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func listDevices(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl device list <user-id>")
		return
	}

	var devices []map[string]interface{}
	if err := getInto("/users/"+args[0]+"/devices", &devices); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCONSUMED_KWH\tLAST_READING")
	for _, d := range devices {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", d["id"], d["name"], d["deviceType"], d["totalConsumedKwh"], d["lastReadingAt"])
	}
	w.Flush()
}

func getDevice(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl device get <device-id>")
		return
	}
	printResource("/devices/" + args[0])
}

func deleteDevice(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl device delete <device-id>")
		return
	}
	deleteResource("/devices/"+args[0], "device")
}

// Reading commands
func addReading(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	deviceID := fs.String("device", "", "device ID")
	consumption := fs.Float64("consumption", 0, "consumption in kWh")
	production := fs.Float64("production", 0, "production in kWh")
	power := fs.Float64("power", 0, "instantaneous power in watts")

	fs.Parse(args)

	if *deviceID == "" {
		fmt.Println("Error: device is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"deviceId":       *deviceID,
		"consumptionKwh": *consumption,
		"productionKwh":  *production,
	}
	if *power > 0 {
		payload["powerWatts"] = *power
	}

	result, status, err := postJSON("/readings", payload)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if status == 201 {
		fmt.Printf("✓ Reading stored: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Store failed: %v\n", result)
	}
}

func listReadings(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl reading list <device-id>")
		return
	}

	var readings []map[string]interface{}
	if err := getInto("/devices/"+args[0]+"/readings", &readings); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tCONSUMPTION_KWH\tPOWER_W")
	for _, rd := range readings {
		fmt.Fprintf(w, "%v\t%v\t%v\n", rd["timestamp"], rd["consumptionKwh"], rd["powerWatts"])
	}
	w.Flush()
}

// Stats commands
func statsSummary(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl stats summary <user-id>")
		return
	}
	printResource("/users/" + args[0] + "/energy-stats")
}

func statsDaily(args []string) {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	days := fs.Int("days", 30, "trailing window in days")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Println("Usage: energyctl stats daily [-days N] <user-id>")
		return
	}
	printResource(fmt.Sprintf("/users/%s/daily-stats?days=%d", rest[0], *days))
}

func statsCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	period := fs.Int("period", 30, "period length in days")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Println("Usage: energyctl stats compare [-period N] <user-id>")
		return
	}
	printResource(fmt.Sprintf("/users/%s/compare-usage?period=%d", rest[0], *period))
}

// AI commands
func aiRecommend(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl ai recommend <user-id>")
		return
	}
	printResource("/users/" + args[0] + "/recommendations")
}

func aiAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	period := fs.String("period", "week", "week, month or quarter")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Println("Usage: energyctl ai analyze [-period week|month|quarter] <user-id>")
		return
	}
	printResource("/users/" + rest[0] + "/analyze-usage?period=" + *period)
}

func aiTips(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: energyctl ai tips <device-id>")
		return
	}
	printResource("/devices/" + args[0] + "/optimization-tips")
}

func aiStatus() {
	printResource("/ai-status")
}

// HTTP helpers
func getAPIURL() string {
	if url := os.Getenv("ENERGY_API_URL"); url != "" {
		return url + "/api/v1"
	}
	return "http://localhost:8080/api/v1"
}

func postJSON(path string, payload map[string]interface{}) (map[string]interface{}, int, error) {
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result, resp.StatusCode, nil
}

func getInto(path string, out interface{}) error {
	resp, err := http.Get(getAPIURL() + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func printResource(path string) {
	resp, err := http.Get(getAPIURL() + path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

func deleteResource(path, kind string) {
	req, _ := http.NewRequest(http.MethodDelete, getAPIURL()+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Printf("✓ %s deactivated\n", kind)
	} else {
		fmt.Printf("✗ delete failed (status %d)\n", resp.StatusCode)
	}
}

func printUsage() {
	fmt.Println(`energyctl - household energy platform CLI

Usage:
  energyctl user <create|list|get|delete> [flags]
  energyctl device <create|list|get|delete> [flags]
  energyctl reading <add|list> [flags]
  energyctl stats <summary|daily|compare> [flags]
  energyctl ai <recommend|analyze|tips|status> [flags]

Environment:
  ENERGY_API_URL  base URL of the API server (default http://localhost:8080)`)
}
