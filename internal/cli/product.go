package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/products"
)

func ProductsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Query the product catalogue",
	}
	cmd.AddCommand(ProductsSearchCmd(app))
	return cmd
}

func ProductsSearchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			sortBy, _ := cmd.Flags().GetString("sort")
			order, _ := cmd.Flags().GetString("order")

			resp, err := products.Search(cmd.Context(), app.Backend, gateway.ProductSearchParams{
				Query:     strings.Join(args, " "),
				Limit:     limit,
				Offset:    offset,
				SortBy:    gateway.SortField(sortBy),
				SortOrder: gateway.SortOrder(order),
			})
			if err != nil {
				return err
			}

			if len(resp.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No products found.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tNOBB\tRETAILERS\tMEDIAN PRICE")
			for _, p := range resp.Items {
				price := "-"
				if p.MedianPriceAllRetailers != nil {
					price = fmt.Sprintf("%.2f", *p.MedianPriceAllRetailers)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ProductID, p.BaseName, deref(p.NOBBCode), p.RetailerCount, price)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d-%d of %d\n", resp.Offset+1, resp.Offset+len(resp.Items), resp.Total)
			return nil
		},
	}
	cmd.Flags().Int("limit", products.DefaultLimit, "Results per page")
	cmd.Flags().Int("offset", 0, "Results to skip")
	cmd.Flags().String("sort", "", "Sort by name, price or retailer_count")
	cmd.Flags().String("order", "", "Sort order asc or desc")
	return cmd
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
