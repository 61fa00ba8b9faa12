package cli

import (
	"errors"
	"fmt"

	"github.com/slackmgr/dynadoc"
	"github.com/slackmgr/dynadoc/attr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [table] [id]",
		Short: "Prints the document with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, found, err := client.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("document %s not found in table %s", args[1], args[0])
			}
			return writeDocuments(cmd.OutOrStdout(), []attr.Document{doc}, viper.GetBool("wire"))
		},
	}
	getItemsCmd = &cobra.Command{
		Use:   "get-items [table] [id]...",
		Short: "Prints the documents with the given ids, in no particular order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := client.GetItems(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), docs, viper.GetBool("wire"))
		},
	}
	listCmd = &cobra.Command{
		Use:   "list [table]",
		Short: "Scans the table and prints every matching document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			where, _ := cmd.Flags().GetStringArray("where")
			conds, err := parseConditions(where)
			if err != nil {
				return err
			}
			docs, err := client.List(cmd.Context(), args[0], conds)
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), docs, viper.GetBool("wire"))
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [table]",
		Short: "Queries the table or one of its indexes",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	putCmd = &cobra.Command{
		Use:   "put [table] [json|-]",
		Short: "Writes a document, assigning an id when it has none",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wire := viper.GetBool("wire")
			data, err := readArg(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			doc, err := decodeDocument(data, wire)
			if err != nil {
				return err
			}
			expr, _ := cmd.Flags().GetString("condition")
			names, _ := cmd.Flags().GetString("names")
			values, _ := cmd.Flags().GetString("values")
			cond, err := parseExpression(expr, names, values, wire)
			if err != nil {
				return err
			}
			doc, err = client.Create(cmd.Context(), args[0], doc, cond)
			if err != nil {
				if dynadoc.IsConditionalCheckFailed(err) {
					return errors.New("condition not met, document was not written")
				}
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), []attr.Document{doc}, wire)
		},
	}
	putItemsCmd = &cobra.Command{
		Use:   "put-items [table] [file|-]",
		Short: "Writes a JSON array of documents in batches",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wire := viper.GetBool("wire")
			data, err := readFile(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			docs, err := decodeDocuments(data, wire)
			if err != nil {
				return err
			}
			docs, err = client.CreateItems(cmd.Context(), args[0], docs)
			if err != nil {
				var batchErr *dynadoc.BatchWriteError
				if errors.As(err, &batchErr) {
					for _, f := range batchErr.Failed {
						fmt.Fprintf(cmd.ErrOrStderr(), "documents %d to %d were not written: %v\n", f.Start, f.End-1, f.Err)
					}
				}
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), docs, wire)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [table] [json|-]",
		Short: "Updates the fields of an existing document, removing falsy fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wire := viper.GetBool("wire")
			data, err := readArg(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			doc, err := decodeDocument(data, wire)
			if err != nil {
				return err
			}
			doc, err = client.Update(cmd.Context(), args[0], doc)
			if err != nil {
				return err
			}
			return writeDocuments(cmd.OutOrStdout(), []attr.Document{doc}, wire)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [table] [json|-]",
		Short: "Deletes the document matching the given key fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wire := viper.GetBool("wire")
			data, err := readArg(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			doc, err := decodeDocument(data, wire)
			if err != nil {
				return err
			}
			if _, err := client.Remove(cmd.Context(), args[0], doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted successfully")
			return nil
		},
	}
	verifyCmd = &cobra.Command{
		Use:   "verify [table]",
		Short: "Checks that the table exists, is active and is keyed by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.VerifyTable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s is ready\n", args[0])
			return nil
		},
	}
)

func init() {
	listCmd.Flags().StringArray("where", nil, "filter condition key=OP:json, repeatable (e.g. age=GE:21)")

	queryCmd.Flags().String("key-condition", "", "key condition expression, e.g. \"#id = :id\"")
	queryCmd.Flags().StringArray("key", nil, "key condition key=OP:json, repeatable, instead of --key-condition")
	queryCmd.Flags().String("names", "", "JSON object of expression attribute names")
	queryCmd.Flags().String("values", "", "JSON object of expression attribute values")
	queryCmd.Flags().String("index", "", "name of a secondary index to query")
	queryCmd.Flags().Bool("reverse", false, "return results in descending sort key order")
	queryCmd.Flags().Int("limit", 0, "maximum number of documents to return (0 for all)")
	queryCmd.Flags().StringArray("filter", nil, "filter condition key=OP:json, repeatable, only with --key")
	queryCmd.MarkFlagsMutuallyExclusive("key-condition", "key")
	queryCmd.MarkFlagsOneRequired("key-condition", "key")

	putCmd.Flags().String("condition", "", "condition expression the write must satisfy")
	putCmd.Flags().String("names", "", "JSON object of expression attribute names")
	putCmd.Flags().String("values", "", "JSON object of expression attribute values")
}

func runQuery(cmd *cobra.Command, args []string) error {
	wire := viper.GetBool("wire")
	flags := cmd.Flags()

	expr, _ := flags.GetString("key-condition")
	names, _ := flags.GetString("names")
	values, _ := flags.GetString("values")
	keys, _ := flags.GetStringArray("key")
	filters, _ := flags.GetStringArray("filter")

	opts := &dynadoc.QueryOptions{}
	opts.Index, _ = flags.GetString("index")
	opts.Reverse, _ = flags.GetBool("reverse")
	opts.Limit, _ = flags.GetInt("limit")

	filter, err := parseConditions(filters)
	if err != nil {
		return err
	}
	opts.Filter = filter

	var key dynadoc.KeyCondition

	if expr != "" {
		e, err := parseExpression(expr, names, values, wire)
		if err != nil {
			return err
		}
		key = e
	} else {
		conds, err := parseConditions(keys)
		if err != nil {
			return err
		}
		key = dynadoc.Conditions(conds)
	}

	docs, err := client.Query(cmd.Context(), args[0], key, opts)
	if err != nil {
		return err
	}

	return writeDocuments(cmd.OutOrStdout(), docs, wire)
}
