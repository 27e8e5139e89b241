package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shokoko2010/site-Manage-sub000/internal/domain"
	"github.com/shokoko2010/site-Manage-sub000/internal/usecase"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func printSites(sites []domain.Site) {
	if len(sites) == 0 {
		fmt.Println(dimStyle.Render("no sites registered"))
		return
	}

	fmt.Println(headerStyle.Render(pad("SITE", 36) + pad("NAME", 20) + pad("KIND", 9) + "POSTS/PAGES/PRODUCTS"))
	for _, site := range sites {
		kind := "real"
		if site.IsVirtual {
			kind = "virtual"
		}
		stats := fmt.Sprintf("%d/%d/%d", site.Stats.Posts, site.Stats.Pages, site.Stats.Products)
		fmt.Println(pad(site.ID, 36) + pad(site.Name, 20) + pad(kind, 9) + stats)
	}
}

func printLibrary(library []domain.Content) {
	if len(library) == 0 {
		fmt.Println(dimStyle.Render("library is empty"))
		return
	}

	fmt.Println(headerStyle.Render(pad("TITLE", 40) + pad("KIND", 9) + pad("STATUS", 11) + pad("ORIGIN", 8) + pad("SCHEDULED", 12) + "SITE"))
	for _, item := range library {
		meta := item.Meta()
		scheduled := "-"
		if meta.ScheduledFor != nil {
			scheduled = meta.ScheduledFor.Format("2006-01-02")
		}
		fmt.Println(pad(meta.Title, 40) +
			pad(string(item.Kind()), 9) +
			pad(string(meta.Status), 11) +
			pad(string(meta.Origin), 8) +
			pad(scheduled, 12) +
			meta.SiteID)
	}
}

func printSyncResult(result usecase.ReconcileResult) {
	if result.SyncFailed {
		fmt.Println(errStyle.Render("sync failed for every site; showing cached local content"))
	} else {
		fmt.Println(okStyle.Render(fmt.Sprintf("library rebuilt: %d item(s)", len(result.Library))))
	}
	for _, failure := range result.Failures {
		fmt.Println(errStyle.Render(fmt.Sprintf("  %s: %v", failure.SiteID, failure.Err)))
	}
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width-2]) + "… "
	}
	return s + strings.Repeat(" ", width-len(runes))
}
