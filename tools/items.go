// Item service tools.
//
// Each handler maps every failure of the remote call to a descriptive string:
// 404 becomes "Item with ID <id> not found", a missing credential for the
// secure endpoint is reported without sending a request.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/richinex/apiagent/model"
)

// Tool names exposed to the model.
const (
	ToolHealth     = "health"
	ToolCreateItem = "createItem"
	ToolListItems  = "listItems"
	ToolGetItem    = "getItem"
	ToolUpdateItem = "updateItem"
	ToolDeleteItem = "deleteItem"
	ToolUploadFile = "uploadFile"
	ToolGetSecret  = "getSecret"
)

// DefaultListLimit is the listItems page size when none is given.
const DefaultListLimit = 10

var (
	idParam    = Parameter{Name: "id", Type: "integer", Description: "Item ID", Required: true}
	nameParam  = Parameter{Name: "name", Type: "string", Description: "Item name", Required: true}
	priceParam = Parameter{Name: "price", Type: "number", Description: "Item price", Required: true}
	tagsParam  = Parameter{Name: "tags", Type: "array", Description: "Optional list of tags"}
)

// APISpecs returns the specs of the item service tools in presentation order.
func APISpecs() []Spec {
	return []Spec{
		{Name: ToolHealth, Description: "Check if the API is healthy and running"},
		{
			Name:        ToolCreateItem,
			Description: "Create a new item with name, price, and optional tags",
			Parameters:  []Parameter{nameParam, priceParam, tagsParam},
		},
		{
			Name:        ToolListItems,
			Description: "List all items, optionally filtered by search query",
			Parameters: []Parameter{
				{Name: "query", Type: "string", Description: "Optional search string matched against item names"},
				{Name: "limit", Type: "integer", Description: "Maximum number of items to return", Default: DefaultListLimit},
			},
		},
		{
			Name:        ToolGetItem,
			Description: "Get details of a specific item by its ID",
			Parameters:  []Parameter{idParam},
		},
		{
			Name:        ToolUpdateItem,
			Description: "Update an existing item's name, price, and tags",
			Parameters:  []Parameter{idParam, nameParam, priceParam, tagsParam},
		},
		{
			Name:        ToolDeleteItem,
			Description: "Delete an item by its ID",
			Parameters:  []Parameter{idParam},
		},
		{
			Name:        ToolUploadFile,
			Description: "Upload a local file to the server",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "Path to the file to upload", Required: true},
			},
		},
		{Name: ToolGetSecret, Description: "Get secret from secure endpoint (requires API key)"},
	}
}

// RegisterAPITools registers every item service tool backed by client.
func RegisterAPITools(r *Registry, client *APIClient) error {
	handlers := map[string]Handler{
		ToolHealth:     client.health,
		ToolCreateItem: client.createItem,
		ToolListItems:  client.listItems,
		ToolGetItem:    client.getItem,
		ToolUpdateItem: client.updateItem,
		ToolDeleteItem: client.deleteItem,
		ToolUploadFile: client.uploadFile,
		ToolGetSecret:  client.getSecret,
	}

	for _, spec := range APISpecs() {
		if err := r.Register(spec, handlers[spec.Name]); err != nil {
			return fmt.Errorf("failed to register item tools: %w", err)
		}
	}
	return nil
}

func (c *APIClient) health(ctx context.Context, _ Args) string {
	var status map[string]any
	if err := c.Get(ctx, "/health", nil, &status); err != nil {
		return fmt.Sprintf("Error checking health: %v", err)
	}
	return "API is healthy: " + render(status)
}

func (c *APIClient) createItem(ctx context.Context, args Args) string {
	var item model.Item
	if err := c.Post(ctx, "/items", itemInput(args), &item); err != nil {
		return fmt.Sprintf("Error creating item: %v", err)
	}
	return "Created item: " + render(item)
}

func (c *APIClient) listItems(ctx context.Context, args Args) string {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(args.Int("limit")))
	if q := args.String("query"); q != "" {
		query.Set("q", q)
	}

	var items []model.Item
	if err := c.Get(ctx, "/items", query, &items); err != nil {
		return fmt.Sprintf("Error listing items: %v", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return fmt.Sprintf("Found %d items: %s", len(items), render(items))
}

func (c *APIClient) getItem(ctx context.Context, args Args) string {
	id := args.Int("id")
	var item model.Item
	if err := c.Get(ctx, itemPath(id), nil, &item); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return notFound(id)
		}
		return fmt.Sprintf("Error getting item: %v", err)
	}
	return "Item details: " + render(item)
}

func (c *APIClient) updateItem(ctx context.Context, args Args) string {
	id := args.Int("id")
	var item model.Item
	if err := c.Put(ctx, itemPath(id), itemInput(args), &item); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return notFound(id)
		}
		return fmt.Sprintf("Error updating item: %v", err)
	}
	return "Updated item: " + render(item)
}

func (c *APIClient) deleteItem(ctx context.Context, args Args) string {
	id := args.Int("id")
	var body any
	status, err := c.Delete(ctx, itemPath(id), &body)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return notFound(id)
		}
		return fmt.Sprintf("Error deleting item: %v", err)
	}
	if status == http.StatusNoContent || body == nil {
		return fmt.Sprintf("Successfully deleted item %d", id)
	}
	return "Deleted item: " + render(body)
}

func (c *APIClient) uploadFile(ctx context.Context, args Args) string {
	path := args.String("path")
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("Error: File not found at %s", path)
	}
	if err == nil && info.IsDir() {
		return fmt.Sprintf("Error: %s is a directory, not a file", path)
	}

	var result model.UploadResult
	if err := c.Upload(ctx, "/files/upload", path, &result); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Sprintf("Error: File not found at %s", path)
		}
		return fmt.Sprintf("Error uploading file: %v", err)
	}
	return "File uploaded successfully: " + render(result)
}

func (c *APIClient) getSecret(ctx context.Context, _ Args) string {
	if !c.HasAPIKey() {
		return "Error: API key required for secure endpoint"
	}

	var secret map[string]any
	if err := c.Get(ctx, "/secure/secret", nil, &secret); err != nil {
		return fmt.Sprintf("Error accessing secret: %v", err)
	}
	return "Secret: " + render(secret)
}

func itemInput(args Args) model.ItemInput {
	return model.ItemInput{
		Name:  args.String("name"),
		Price: args.Float("price"),
		Tags:  args.Strings("tags"),
	}
}

func itemPath(id int) string {
	return "/items/" + strconv.Itoa(id)
}

func notFound(id int) string {
	return fmt.Sprintf("Item with ID %d not found", id)
}

func render(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
