package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/repolens/internal/models"
)

// Output formats accepted by --output
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const (
	maxTableCommits      = 10
	maxTableContributors = 10
	recentWeeks          = 8
)

var (
	headingColor  = color.New(color.FgCyan, color.Bold)
	additionColor = color.New(color.FgGreen)
	deletionColor = color.New(color.FgRed)
	warningColor  = color.New(color.FgYellow)
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}

// writeStructured encodes v as JSON or YAML
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// renderReport prints a human-readable report
func renderReport(w io.Writer, r *models.AnalysisReport) error {
	repo := r.Repo
	fmt.Fprintln(w, headingColor.Sprint(repo.FullName))
	if repo.Description != "" {
		fmt.Fprintln(w, repo.Description)
	}
	fmt.Fprintf(w, "★ %d  forks %d  watchers %d  open issues %d  default branch %s\n",
		repo.Stars, repo.Forks, repo.Watchers, repo.OpenIssues, repo.DefaultBranch)
	if r.IsPrivate {
		fmt.Fprintln(w, warningColor.Sprint("private repository"))
	}
	fmt.Fprintf(w, "Lines: %s %s  net %d\n\n",
		additionColor.Sprintf("+%d", r.TotalAdditions),
		deletionColor.Sprintf("-%d", r.TotalDeletions),
		r.TotalLines)

	if len(r.LanguagePercentages) > 0 {
		fmt.Fprintln(w, headingColor.Sprint("Languages"))
		if err := writeTable(w, []string{"Language", "Bytes", "Share"}, languageRows(r.LanguagePercentages)); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	if len(r.Commits) > 0 {
		fmt.Fprintln(w, headingColor.Sprintf("Recent commits (%d)", len(r.Commits)))
		if err := writeTable(w, []string{"SHA", "Author", "Date", "+", "-", "Files", "Message"}, commitRows(r.Commits)); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, headingColor.Sprint("Code frequency"))
	if r.CodeFrequencyComputing {
		fmt.Fprintln(w, warningColor.Sprint("still computing on GitHub, try again shortly"))
	} else if len(r.CodeFrequency) == 0 {
		fmt.Fprintln(w, "no activity")
	} else if err := writeTable(w, []string{"Week", "+", "-"}, weekRows(r.CodeFrequency)); err != nil {
		return err
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingColor.Sprint("Contributors"))
	switch {
	case r.ContributorsComputing:
		fmt.Fprintln(w, warningColor.Sprint("still computing on GitHub, try again shortly"))
	case len(r.Contributors) == 0:
		fmt.Fprintln(w, "none")
	default:
		if r.ContributorsFallback {
			fmt.Fprintln(w, warningColor.Sprint("lifetime totals only, weekly activity unavailable"))
		}
		if err := writeTable(w, []string{"Author", "Commits", "Active weeks"}, contributorRows(r.Contributors)); err != nil {
			return err
		}
	}
	return nil
}

// renderCodeFrequency prints the standalone code-frequency series
func renderCodeFrequency(w io.Writer, repo string, res models.CodeFrequencyResult) error {
	fmt.Fprintln(w, headingColor.Sprintf("Code frequency for %s", repo))
	if res.Computing {
		fmt.Fprintln(w, warningColor.Sprint("still computing on GitHub, try again shortly"))
		return nil
	}
	if len(res.Data) == 0 {
		fmt.Fprintln(w, "no activity")
		return nil
	}
	return writeTable(w, []string{"Week", "+", "-"}, weekRows(res.Data))
}

func renderUserRepos(w io.Writer, repos []models.UserRepo) error {
	rows := make([][]string, 0, len(repos))
	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		rows = append(rows, []string{
			r.FullName,
			r.Language,
			strconv.Itoa(r.Stars),
			visibility,
			r.UpdatedAt.Format("2006-01-02"),
		})
	}
	return writeTable(w, []string{"Repository", "Language", "Stars", "Visibility", "Updated"}, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(tc *tablewriter.Config) {
		tc.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func languageRows(langs []models.LanguageShare) [][]string {
	rows := make([][]string, 0, len(langs))
	for _, l := range langs {
		rows = append(rows, []string{l.Name, strconv.Itoa(l.Bytes), fmt.Sprintf("%.1f%%", l.Percentage)})
	}
	return rows
}

func commitRows(commits []models.Commit) [][]string {
	if len(commits) > maxTableCommits {
		commits = commits[:maxTableCommits]
	}
	rows := make([][]string, 0, len(commits))
	for _, c := range commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		rows = append(rows, []string{
			sha,
			c.Author,
			c.Date.Format("2006-01-02"),
			strconv.Itoa(c.Additions),
			strconv.Itoa(c.Deletions),
			strconv.Itoa(c.Files),
			truncate(c.Message, 60),
		})
	}
	return rows
}

// weekRows shows the most recent weeks, oldest first
func weekRows(weeks []models.WeeklyBucket) [][]string {
	if len(weeks) > recentWeeks {
		weeks = weeks[len(weeks)-recentWeeks:]
	}
	rows := make([][]string, 0, len(weeks))
	for _, b := range weeks {
		rows = append(rows, []string{
			b.WeekStart().Format("2006-01-02"),
			strconv.Itoa(b.Additions),
			strconv.Itoa(b.Deletions),
		})
	}
	return rows
}

func contributorRows(contributors []models.ContributorSummary) [][]string {
	if len(contributors) > maxTableContributors {
		contributors = contributors[:maxTableContributors]
	}
	rows := make([][]string, 0, len(contributors))
	for _, c := range contributors {
		active := 0
		for _, wk := range c.Weeks {
			if wk.Commits > 0 {
				active++
			}
		}
		weeks := "-"
		if len(c.Weeks) > 0 {
			weeks = strconv.Itoa(active)
		}
		rows = append(rows, []string{c.Author, strconv.Itoa(c.Total), weeks})
	}
	return rows
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// cacheNote describes where a result came from
func cacheNote(hit bool, age time.Duration) string {
	if !hit {
		return "fresh from GitHub"
	}
	return fmt.Sprintf("cached %s ago", age.Round(time.Second))
}
