package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// buildSchema creates the read-only GraphQL schema over the viewer state.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	extentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Extent",
		Fields: graphql.Fields{
			"min_x": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Extent).MinX, nil
			}},
			"min_y": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Extent).MinY, nil
			}},
			"max_x": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Extent).MaxX, nil
			}},
			"max_y": &graphql.Field{Type: graphql.Float, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Extent).MaxY, nil
			}},
		},
	})

	featureType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Feature",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(p.Source.(domain.RenderedFeature).ID), nil
			}},
			"entity_id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				// String keeps 64-bit ids exact.
				return strconv.FormatInt(p.Source.(domain.RenderedFeature).Key.ID, 10), nil
			}},
			"label": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.RenderedFeature).Label, nil
			}},
			"names": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				// Server order, unlike the sorted label.
				e, ok := deps.Map.Entity(p.Source.(domain.RenderedFeature).ID)
				if !ok {
					return []string{}, nil
				}
				return e.Names, nil
			}},
			"kind": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(p.Source.(domain.RenderedFeature).Kind), nil
			}},
			"geometry_type": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(p.Source.(domain.RenderedFeature).Type), nil
			}},
			"stroke": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.RenderedFeature).Style.Stroke.CSS(), nil
			}},
			"extent": &graphql.Field{Type: extentType, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.RenderedFeature).Extent, nil
			}},
		},
	})

	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"kind": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return string(p.Source.(domain.Message).Kind), nil
			}},
			"text": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Message).Text, nil
			}},
			"header": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(domain.Message).Header, nil
			}},
		},
	})

	connectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Connection",
		Fields: graphql.Fields{
			"host":         &graphql.Field{Type: graphql.String},
			"port":         &graphql.Field{Type: graphql.Int},
			"database":     &graphql.Field{Type: graphql.String},
			"role":         &graphql.Field{Type: graphql.String},
			"password_set": &graphql.Field{Type: graphql.Boolean},
		},
	})

	shellType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shell",
		Fields: graphql.Fields{
			"visible_panels": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				st := p.Source.(usecases.ShellState)
				out := []string{}
				for _, panel := range usecases.Panels {
					if st.Visible[panel] {
						out = append(out, string(panel))
					}
				}
				return out, nil
			}},
			"disabled": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(usecases.ShellState).Disabled, nil
			}},
			"has_messages": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(usecases.ShellState).HasMessages, nil
			}},
			"selected_names": &graphql.Field{Type: graphql.NewList(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(usecases.ShellState).SelectedNames, nil
			}},
			"base_layer_visible": &graphql.Field{Type: graphql.Boolean, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(usecases.ShellState).BaseLayerVisible, nil
			}},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"features": &graphql.Field{
				Type:        graphql.NewList(featureType),
				Description: "Features rendered on the map, ordered by id",
				Args: graphql.FieldConfigArgument{
					"kind": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kind, _ := p.Args["kind"].(string)
					features := deps.Map.Tracked()
					if kind == "" {
						return features, nil
					}
					k, ok := domain.ParseKind(kind)
					if !ok {
						return []domain.RenderedFeature{}, nil
					}
					out := make([]domain.RenderedFeature, 0, len(features))
					for _, f := range features {
						if f.Kind == k {
							out = append(out, f)
						}
					}
					return out, nil
				},
			},
			"feature": &graphql.Field{
				Type:        featureType,
				Description: "A rendered feature by id, e.g. \"place/42\"",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := domain.FeatureID(p.Args["id"].(string))
					for _, f := range deps.Map.Tracked() {
						if f.ID == id {
							return f, nil
						}
					}
					return nil, nil
				},
			},
			"messages": &graphql.Field{
				Type:        graphql.NewList(messageType),
				Description: "Queued warnings and errors, oldest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Messages.Messages(), nil
				},
			},
			"connection": &graphql.Field{
				Type:        connectionType,
				Description: "The current connection profile",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					cur := deps.Connections.Current()
					if cur == nil {
						return nil, nil
					}
					return profileFields(toProfileView(*cur)), nil
				},
			},
			"recentConnections": &graphql.Field{
				Type:        graphql.NewList(connectionType),
				Description: "Recently used connection profiles, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					views := toProfileViews(deps.Connections.Recent())
					out := make([]map[string]interface{}, 0, len(views))
					for _, v := range views {
						out = append(out, profileFields(v))
					}
					return out, nil
				},
			},
			"shell": &graphql.Field{
				Type:        shellType,
				Description: "Navigation state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shell.State(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func profileFields(v profileView) map[string]interface{} {
	return map[string]interface{}{
		"host":         v.Host,
		"port":         v.Port,
		"database":     v.Database,
		"role":         v.Role,
		"password_set": v.PasswordSet,
	}
}

// GraphQLHandler returns a Fiber handler that executes GraphQL queries.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
