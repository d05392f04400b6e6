package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"

	"airsolutions/collections"
	"airsolutions/handlers"
	"airsolutions/services"
)

func main() {
	app := pocketbase.New()

	app.RootCmd.AddCommand(recalcCommand(app), importCatalogCommand(app))

	// Create collections, default configuration and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.MigrateDefaultConfiguration(app); err != nil {
			log.Printf("Warning: configuration migration failed: %v", err)
		}
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		if err := collections.MigrateRecalculateProjects(app); err != nil {
			log.Printf("Warning: project recalculation failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// ── Options & configuration ──────────────────────────────
		se.Router.GET("/api/options", handlers.HandleOptions())
		se.Router.GET("/api/configuration", handlers.HandleConfigurationGet(app))
		se.Router.PUT("/api/configuration", handlers.HandleConfigurationUpdate(app))

		// ── Catalog ──────────────────────────────────────────────
		se.Router.GET("/api/catalog/components", handlers.HandleComponentList(app))
		se.Router.GET("/api/catalog/equipment", handlers.HandleEquipmentList(app))
		se.Router.GET("/api/catalog/materials", handlers.HandleMaterialList(app))
		se.Router.POST("/api/catalog/import", handlers.HandleCatalogImport(app))

		// ── Quotations ───────────────────────────────────────────
		se.Router.POST("/api/quotations/preview", handlers.HandleQuotationPreview(app))
		se.Router.POST("/api/quotations", handlers.HandleQuotationCreate(app))
		se.Router.GET("/api/quotations/{id}/pdf", handlers.HandleQuotationPDF(app))
		se.Router.POST("/api/quotations/{id}/status", handlers.HandleQuotationStatus(app))
		se.Router.POST("/api/quotations/{id}/send", handlers.HandleQuotationSend(app))
		se.Router.GET("/api/quotations/{id}", handlers.HandleQuotationGet(app))

		// ── Projects ─────────────────────────────────────────────
		se.Router.POST("/api/projects", handlers.HandleProjectCreate(app))
		se.Router.GET("/api/projects/{id}/excel", handlers.HandleProjectExcelExport(app))
		se.Router.POST("/api/projects/{id}/excel", handlers.HandleProjectExcelImport(app))
		se.Router.POST("/api/projects/{id}/recalculate", handlers.HandleProjectRecalculate(app))
		se.Router.GET("/api/projects/{id}", handlers.HandleProjectGet(app))
		se.Router.PATCH("/api/projects/{id}", handlers.HandleProjectUpdate(app))
		se.Router.DELETE("/api/projects/{id}", handlers.HandleProjectDelete(app))

		// ── Levels & items ───────────────────────────────────────
		se.Router.POST("/api/projects/{id}/levels", handlers.HandleLevelCreate(app))
		se.Router.PATCH("/api/projects/{id}/levels/{levelId}", handlers.HandleLevelUpdate(app))
		se.Router.DELETE("/api/projects/{id}/levels/{levelId}", handlers.HandleLevelDelete(app))
		se.Router.POST("/api/projects/{id}/levels/{levelId}/items", handlers.HandleItemCreate(app))
		se.Router.PATCH("/api/projects/{id}/items/{itemId}", handlers.HandleItemUpdate(app))
		se.Router.DELETE("/api/projects/{id}/items/{itemId}", handlers.HandleItemDelete(app))

		// ── Project files ────────────────────────────────────────
		se.Router.GET("/api/projects/{id}/files", handlers.HandleProjectFileList(app))
		se.Router.POST("/api/projects/{id}/files", handlers.HandleProjectFileUpload(app))
		se.Router.DELETE("/api/projects/{id}/files/{fileId}", handlers.HandleProjectFileDelete(app))

		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/_/")
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// recalcCommand re-runs the cost rollup of every stored project.
func recalcCommand(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate the cost totals of every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			collections.Setup(app)
			n, err := services.RecalculateAll(app)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recalculated %d project(s)\n", n)
			return nil
		},
	}
}

// importCatalogCommand loads HVAC components from a CSV or XLSX file.
func importCatalogCommand(app *pocketbase.PocketBase) *cobra.Command {
	return &cobra.Command{
		Use:   "import-catalog <file>",
		Short: "Import HVAC components from a .csv or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collections.Setup(app)
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := services.ImportCatalogFile(app, f, args[0])
			if res != nil {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "row %d, %s: %s\n", e.Row, e.Field, e.Message)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d updated\n", res.Created, res.Updated)
			return nil
		},
	}
}
